package pipeline

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 按优先级排列：段落、换行、空格。都找不到时按字符硬切。
var DefaultSeparators = []string{"\n\n", "\n", " "}

// Splitter 递归地按分隔符切分文本，使每个分块不超过 ChunkSize 个字符，
// 相邻分块之间尽量保留 ChunkOverlap 个字符的重叠。长度按 rune 计算。
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter 创建一个使用默认分隔符的 Splitter。overlap 不小于 size 时被收紧为 size/2。
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap, Separators: DefaultSeparators}
}

// Split 切分文本，返回去掉首尾空白后的非空分块。
func (s *Splitter) Split(text string) []string {
	separators := append(append([]string{}, s.Separators...), "")
	return s.split(text, separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, s.hardCut(piece)...)
		} else {
			final = append(final, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// splitKeepSeparator 在分隔符处切开，分隔符保留在后一段的开头；空段被丢弃。
// separator 为空时按字符切分。
func splitKeepSeparator(text, separator string) []string {
	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, separator)
	for i, p := range parts {
		if i > 0 {
			p = separator + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// merge 把小片段拼接为不超过 ChunkSize 的分块，并从上一个分块末尾带上至多 ChunkOverlap 的重叠。
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// hardCut 处理找不到任何分隔符的超长片段：按字符合并，同样带重叠。
func (s *Splitter) hardCut(piece string) []string {
	return s.merge(splitKeepSeparator(piece, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
