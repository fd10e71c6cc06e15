package stamp

import "strings"

// 触发器类型
const (
	TriggerCreate = "create"
	TriggerUpdate = "update"
	TriggerChange = "change"
)

// ChangeRule change 触发器规则：被跟踪字段变为监视值时给 Field 盖章
type ChangeRule struct {
	Field        string      `json:"field"`
	TrackedField string      `json:"tracked_field"`
	WatchedValue interface{} `json:"watched_value"`
}

// Configuration 单个类解析后的触发器配置，解析完成后不再修改
type Configuration struct {
	Create []string     `json:"create,omitempty"`
	Update []string     `json:"update,omitempty"`
	Change []ChangeRule `json:"change,omitempty"`
}

// Empty 配置中没有任何触发器
func (c *Configuration) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Change) == 0
}

// TrackedPath 被跟踪字段引用，最多跨一层关联对象
type TrackedPath struct {
	Root string
	Sub  string
}

// ParseTrackedPath 按第一个 '.' 拆分被跟踪字段引用
// "Status" -> {Status, ""}；"Owner.Role" -> {Owner, Role}
func ParseTrackedPath(ref string) TrackedPath {
	root, sub, ok := strings.Cut(ref, ".")
	if !ok {
		return TrackedPath{Root: ref}
	}
	return TrackedPath{Root: root, Sub: sub}
}
