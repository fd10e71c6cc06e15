package stamp

import "fmt"

// ReadAnnotations 读取一个类自身声明的触发器注解并折叠进配置累加器。
// 祖先类由调用方按最基类在前的顺序分别调用本函数，累加到同一配置，
// 因此子类配置是整条继承链的并集。映射父类不做扫描。
func ReadAnnotations(meta ClassMetadata, cfg *Configuration) error {
	if meta.IsMappedSuperclass() {
		return nil
	}

	for _, prop := range meta.Properties() {
		ann, ok := meta.Annotation(prop)
		if !ok {
			continue
		}

		if !meta.HasField(prop) {
			return fmt.Errorf("%w: %s.%s", ErrFieldNotMapped, meta.Name(), prop)
		}
		if !IsValidField(meta, prop) {
			return fmt.Errorf("%w: %s.%s", ErrInvalidFieldType, meta.Name(), prop)
		}

		switch ann.On {
		case TriggerCreate:
			cfg.Create = append(cfg.Create, prop)
		case TriggerUpdate:
			cfg.Update = append(cfg.Update, prop)
		case TriggerChange:
			if ann.Field == "" || ann.Value == nil {
				return fmt.Errorf("%w: %s.%s", ErrMissingParameters, meta.Name(), prop)
			}
			cfg.Change = append(cfg.Change, ChangeRule{
				Field:        prop,
				TrackedField: ann.Field,
				WatchedValue: ann.Value,
			})
		default:
			return fmt.Errorf("%w: %s.%s on=%q", ErrInvalidTriggerKind, meta.Name(), prop, ann.On)
		}
	}

	return nil
}
