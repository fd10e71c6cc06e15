package stamp

import (
	"fmt"
	"reflect"
)

// Evaluate 判定一条 change 规则是否命中：被跟踪字段出现在变更集中，
// 且（沿点号路径解析后的）新值等于监视值。无副作用。
func Evaluate(rule ChangeRule, cs ChangeSet, source MetadataSource) (bool, error) {
	path := ParseTrackedPath(rule.TrackedField)

	change, ok := cs[path.Root]
	if !ok {
		// 被跟踪字段本次提交未变更
		return false, nil
	}

	value := change.New
	if path.Sub != "" {
		if !isObject(value) {
			return false, fmt.Errorf("%w: tracked field %s changed to a non-object value", ErrObjectExpected, path.Root)
		}
		relMeta, ok := source.MetadataOf(value)
		if !ok {
			return false, fmt.Errorf("%w: no metadata for value of tracked field %s", ErrObjectExpected, path.Root)
		}
		value = relMeta.Accessor(path.Sub).Get(value)
	}

	return looseEqual(value, rule.WatchedValue), nil
}

// isObject 值是否为对象引用（结构体或指向结构体的指针）
func isObject(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

// looseEqual 宽松的值相等：同类型直接比较，
// 不同类型退化为字符串形式比较（监视值通常来自声明文本）
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) == reflect.TypeOf(b) {
		return reflect.DeepEqual(a, b)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
