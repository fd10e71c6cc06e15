package stamp

// IsValidField 字段是否为可盖章的时间类型，仅在扫描阶段使用
func IsValidField(meta ClassMetadata, field string) bool {
	switch meta.FieldType(field) {
	case FieldTypeDate, FieldTypeTime, FieldTypeDateTime:
		return true
	}
	return false
}
