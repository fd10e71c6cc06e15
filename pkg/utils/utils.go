package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 生成工单对外 ID
func GeneratePublicID() string {
	return uuid.NewString()
}

// 生成随机 ID
func GenerateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// 生成工单编号，形如 TK-20250102-a1b2c3d4
func GenerateTicketNumber() string {
	return fmt.Sprintf("TK-%s-%s", time.Now().Format("20060102"), GenerateID()[:8])
}

// 时间格式化
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// 验证工单标题
func ValidateTitle(title string) bool {
	if len(title) == 0 || len(title) > 255 {
		return false
	}
	return true
}
