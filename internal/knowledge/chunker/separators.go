package chunker

import (
	"regexp"
	"strings"

	"github.com/aerokb/rag-backend/internal/pkg/errors"
)

// Separator 单个分隔符：字面量或已编译的正则。
// 空分隔符（Literal == "" 且 Pattern == nil）是终极回退，表示按字符强制分割。
type Separator struct {
	Literal string
	Pattern *regexp.Regexp
}

// IsTerminal 是否为终极回退分隔符
func (s Separator) IsTerminal() bool {
	return s.Literal == "" && s.Pattern == nil
}

// find 返回 s 中所有不重叠匹配的 [起点, 终点) 字节区间
func (s Separator) find(text string) [][2]int {
	if s.Pattern != nil {
		idx := s.Pattern.FindAllStringIndex(text, -1)
		out := make([][2]int, 0, len(idx))
		for _, m := range idx {
			if m[1] > m[0] { // 忽略空匹配，避免死循环
				out = append(out, [2]int{m[0], m[1]})
			}
		}
		return out
	}

	var out [][2]int
	off := 0
	for {
		i := strings.Index(text[off:], s.Literal)
		if i < 0 {
			return out
		}
		start := off + i
		out = append(out, [2]int{start, start + len(s.Literal)})
		off = start + len(s.Literal)
	}
}

// SeparatorConfig 分隔符解析配置
type SeparatorConfig struct {
	Separators       []string // 按结构重要性从高到低排序
	IsSeparatorRegex bool     // 是否按正则解释
}

// DefaultSeparators 默认分隔符层级（针对航空文档优化）：
// 段落 -> 章节标记 -> 列表标记 -> 换行 -> 句子 -> 子句 -> 空白 -> 字符
func DefaultSeparators() []string {
	return []string{
		// 段落分隔符
		"\n\n",

		// 中文章节标记
		"\n第", "\n章", "\n节", "\n条",

		// 英文章节标记
		"\nChapter", "\nSection", "\nArticle",

		// 列表和编号
		"\n\n•", "\n\n-", "\n\n*",

		// 单行分隔符
		"\n",

		// 句子分隔符
		"。", "！", "？", ".", "!", "?",

		// 子句分隔符
		"；", ";", "，", ",",

		// 词语分隔符
		" ", "\t",

		// 中文标点
		"、", "：", ":",

		// 终极回退：按字符分割
		"",
	}
}

// ResolveSeparators 解析分隔符层级。
// 保证返回非空列表且以终极回退分隔符结尾；
// 非法正则在此处立即报 ConfigurationError，不会在分割过程中出现。
func ResolveSeparators(cfg SeparatorConfig) ([]Separator, error) {
	raw := cfg.Separators
	if len(raw) == 0 {
		raw = DefaultSeparators()
	}

	seps := make([]Separator, 0, len(raw)+1)
	hasTerminal := false
	for _, s := range raw {
		if s == "" {
			hasTerminal = true
			seps = append(seps, Separator{})
			continue
		}
		if cfg.IsSeparatorRegex {
			re, err := regexp.Compile(s)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrKBInvalidSeparator, "pattern %q", s)
			}
			seps = append(seps, Separator{Pattern: re})
		} else {
			seps = append(seps, Separator{Literal: s})
		}
	}

	if !hasTerminal {
		seps = append(seps, Separator{})
	}
	return seps, nil
}
