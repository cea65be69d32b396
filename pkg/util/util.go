package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortUUID 生成一个不带中划线的短 UUID
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateID 带业务前缀的 ID，例如 CS + 18 位随机串
func GenerateID(prefix string) string {
	short := GenerateShortUUID()
	if len(short) > 18 {
		short = short[:18]
	}
	return prefix + short
}

// Truncate 按 rune 截断，超出时追加省略号
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// StrPtr 空白字符串返回 nil
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref 空指针返回空字符串
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
