package stamp

import "errors"

// 配置与求值错误，全部对触发操作致命
var (
	// ErrFieldNotMapped 触发器声明在宿主引擎未映射的字段上
	ErrFieldNotMapped = errors.New("stamp: field must be mapped")

	// ErrInvalidFieldType 触发器字段不是时间类型
	ErrInvalidFieldType = errors.New("stamp: invalid field type")

	// ErrInvalidTriggerKind 触发类型不在 create / update / change 之内
	ErrInvalidTriggerKind = errors.New("stamp: invalid trigger type")

	// ErrMissingParameters change 触发器缺少跟踪字段或监视值
	ErrMissingParameters = errors.New("stamp: change trigger missing parameters")

	// ErrObjectExpected 点号路径的变更集新值不是对象引用
	ErrObjectExpected = errors.New("stamp: object expected")

	// ErrUnsupportedHost 宿主引擎未暴露所需的回调接入点
	ErrUnsupportedHost = errors.New("stamp: unsupported host version")
)
