package service

import "strings"

// DefaultMaxContextChars 是拼装上下文的默认字符上限。
const DefaultMaxContextChars = 2000

// AssembleContext 用单个空格连接检索到的分块，并从开头硬截断到 maxChars 个字符（rune），
// 不加省略号，也不考虑词边界。maxChars <= 0 时使用默认值。
func AssembleContext(texts []string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	joined := strings.Join(texts, " ")
	runes := []rune(joined)
	if len(runes) <= maxChars {
		return joined
	}
	return string(runes[:maxChars])
}
