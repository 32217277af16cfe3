// Package fastparse 提供高性能的字符串解析函数。
// Polymarket 消息中的价格、数量、tick size 均为十进制字符串，
// 时间戳为毫秒字符串；热路径避免 fmt 包，直接使用 strconv。
package fastparse

import (
	"strconv"
)

// ParseFloat 解析十进制字符串（价格/数量/tick size）
// 参数 s: 待解析的字符串，如 "0.45"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseInt 解析整数字符串（毫秒时间戳等）
// 参数 s: 待解析的字符串，如 "1740691280147"
// 返回: 解析后的整数和可能的错误
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// MustParseFloat 解析十进制字符串，失败时返回 0
// 用于字段缺失等价于零值的场景，简化错误处理
func MustParseFloat(s string) float64 {
	v, err := ParseFloat(s)
	if err != nil {
		return 0
	}
	return v
}

// MustParseInt 解析整数字符串，失败时返回 0
// 用于时间戳缺失等价于零值的场景
func MustParseInt(s string) int64 {
	v, err := ParseInt(s)
	if err != nil {
		return 0
	}
	return v
}
