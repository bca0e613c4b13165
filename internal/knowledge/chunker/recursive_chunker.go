package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/errors"
	"github.com/aerokb/rag-backend/internal/pkg/logger"
)

// RecursiveChunker 递归字符分块器。
//
// 基于多层级分隔符进行递归分割：优先使用结构重要性高的分隔符，
// 片段过大时降级到下一级分隔符，层级耗尽后按固定大小强制分割。
// 结构优先于大小均匀：即使更低级的分隔符能产生更均匀的片段，
// 也始终先用层级靠前的分隔符。
type RecursiveChunker struct {
	cfg        RecursiveConfig
	separators []Separator
	length     LengthFunc
	tokenEnc   *tiktoken.Tiktoken
	warnings   []string
	log        *logger.Logger
}

// RecursiveConfig 递归分块器配置
type RecursiveConfig struct {
	ChunkSize        int      // 目标分块大小（按配置单位计）
	ChunkOverlap     int      // 分块重叠大小，必须小于 ChunkSize
	MinChunkSize     int      // 小于该值的分块会被并入相邻分块
	MaxChunkSize     int      // 质量评分用的大小上限
	Separators       []string // 分隔符层级，为空使用默认层级
	IsSeparatorRegex bool     // 分隔符是否按正则解释
	KeepSeparator    bool     // 是否将分隔符保留在前一个片段末尾
	AddStartIndex    bool     // 是否记录分块在文本中的起始位置
	StripWhitespace  bool     // 是否做空白预处理和分块首尾去空白
	LengthUnit       string   // char | token
	TokenEncoding    string   // token 单位使用的编码，默认 cl100k_base
}

// DefaultRecursiveConfig 默认配置
func DefaultRecursiveConfig() RecursiveConfig {
	return RecursiveConfig{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		MinChunkSize:    100,
		MaxChunkSize:    2000,
		KeepSeparator:   true,
		StripWhitespace: true,
	}
}

// NewRecursiveChunker 创建递归分块器。
// 所有配置错误在这里立即返回，分割过程本身不会失败。
func NewRecursiveChunker(cfg RecursiveConfig, log *logger.Logger) (*RecursiveChunker, error) {
	if log == nil {
		log = logger.L()
	}

	if cfg.ChunkSize <= 0 {
		return nil, errors.Newf(errors.ErrKBInvalidChunkConfig, "chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 {
		return nil, errors.Newf(errors.ErrKBInvalidChunkConfig, "chunk_overlap cannot be negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.MinChunkSize < 0 {
		return nil, errors.Newf(errors.ErrKBInvalidChunkConfig, "min_chunk_size cannot be negative, got %d", cfg.MinChunkSize)
	}
	if cfg.MaxChunkSize == 0 {
		cfg.MaxChunkSize = cfg.ChunkSize * 2
	}

	c := &RecursiveChunker{cfg: cfg, log: log}

	// chunk_overlap >= chunk_size 时收缩为 chunk_size-1，并留下可观测的警告
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		clamped := cfg.ChunkSize - 1
		warn := errors.FormatError(errors.ErrKBInvalidChunkConfig,
			"chunk_overlap >= chunk_size, clamped to chunk_size-1")
		c.warnings = append(c.warnings, warn)
		log.Warn("chunk_overlap 大于等于 chunk_size，已收缩",
			zap.Int("chunk_overlap", cfg.ChunkOverlap),
			zap.Int("chunk_size", cfg.ChunkSize),
			zap.Int("clamped", clamped))
		c.cfg.ChunkOverlap = clamped
	}

	seps, err := ResolveSeparators(SeparatorConfig{
		Separators:       cfg.Separators,
		IsSeparatorRegex: cfg.IsSeparatorRegex,
	})
	if err != nil {
		return nil, err
	}
	c.separators = seps

	length, enc, err := resolveLength(cfg.LengthUnit, cfg.TokenEncoding)
	if err != nil {
		return nil, err
	}
	c.length = length
	c.tokenEnc = enc

	return c, nil
}

// ChunkSize 返回目标分块大小
func (c *RecursiveChunker) ChunkSize() int { return c.cfg.ChunkSize }

// ChunkOverlap 返回分块重叠大小（可能经过收缩）
func (c *RecursiveChunker) ChunkOverlap() int { return c.cfg.ChunkOverlap }

// Warnings 返回配置解析阶段记录的警告
func (c *RecursiveChunker) Warnings() []string { return c.warnings }

// Chunk 将文本分块。空文本返回空列表。
func (c *RecursiveChunker) Chunk(_ context.Context, text string) ([]*types.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return []*types.TextChunk{}, nil
	}

	processed := text
	if c.cfg.StripWhitespace {
		processed = preprocessText(text)
	}

	pieces := c.splitSpan(processed, span{0, len(processed)}, c.separators)
	spans := c.mergeSpans(processed, pieces)
	spans = c.absorbSmallSpans(processed, spans)

	return c.buildChunks(processed, spans), nil
}

// span 处理后文本中的一个 [start, end) 字节区间
type span struct {
	start, end int
}

// splitSpan 用分隔符层级递归分割一个区间，返回有序的、
// 每个长度都不超过 ChunkSize 的片段列表。
func (c *RecursiveChunker) splitSpan(text string, sp span, seps []Separator) []span {
	if c.length(text[sp.start:sp.end]) <= c.cfg.ChunkSize {
		return []span{sp}
	}
	if len(seps) == 0 {
		return c.forceSplit(text, sp)
	}

	sep := seps[0]
	rest := seps[1:]

	if sep.IsTerminal() {
		// 空分隔符：按字符强制分割
		return c.forceSplit(text, sp)
	}

	matches := sep.find(text[sp.start:sp.end])
	if len(matches) == 0 {
		// 当前分隔符不存在，丢弃并尝试下一级
		return c.splitSpan(text, sp, rest)
	}

	// 按匹配点切出片段；KeepSeparator 时分隔符附着在前一个片段末尾
	parts := make([]span, 0, len(matches)+1)
	prev := sp.start
	for _, m := range matches {
		ms, me := sp.start+m[0], sp.start+m[1]
		if c.cfg.KeepSeparator {
			if me > prev {
				parts = append(parts, span{prev, me})
			}
		} else {
			if ms > prev {
				parts = append(parts, span{prev, ms})
			}
		}
		prev = me
	}
	if sp.end > prev {
		parts = append(parts, span{prev, sp.end})
	}

	out := make([]span, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(text[p.start:p.end]) == "" {
			continue
		}
		if c.length(text[p.start:p.end]) > c.cfg.ChunkSize {
			// 片段仍然过大，用下一级分隔符继续分割
			out = append(out, c.splitSpan(text, p, rest)...)
		} else {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return c.forceSplit(text, sp)
	}
	return out
}

// forceSplit 层级耗尽后的强制分割：每 ChunkSize 个单位切一刀，
// 不考虑语义，保证递归必然终止。
func (c *RecursiveChunker) forceSplit(text string, sp span) []span {
	if c.tokenEnc != nil {
		return c.forceSplitTokens(text, sp)
	}

	var out []span
	start := sp.start
	count := 0
	for i := sp.start; i < sp.end; {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		count++
		if count == c.cfg.ChunkSize {
			out = append(out, span{start, i})
			start = i
			count = 0
		}
	}
	if start < sp.end {
		out = append(out, span{start, sp.end})
	}
	return out
}

// forceSplitTokens token 单位下的强制分割：按 ChunkSize 个 token 开窗，
// 通过解码前缀换算回字节偏移。
func (c *RecursiveChunker) forceSplitTokens(text string, sp span) []span {
	s := text[sp.start:sp.end]
	tokens := c.tokenEnc.Encode(s, nil, nil)
	if len(tokens) == 0 {
		return []span{sp}
	}

	var out []span
	for start := 0; start < len(tokens); start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		bs := len(c.tokenEnc.Decode(tokens[:start]))
		be := len(c.tokenEnc.Decode(tokens[:end]))
		if be > bs {
			out = append(out, span{sp.start + bs, sp.start + be})
		}
	}
	return out
}

// mergeSpans 贪心合并相邻小片段。片段在原文中彼此相邻
// （被丢弃的分隔符夹在中间），所以缓冲区始终是原文的连续切片，
// 丢弃的分隔符只在分块边界处真正消失。
func (c *RecursiveChunker) mergeSpans(text string, pieces []span) []span {
	if len(pieces) == 0 {
		return nil
	}

	var out []span
	cur := pieces[0]
	for _, p := range pieces[1:] {
		if c.length(text[cur.start:p.end]) <= c.cfg.ChunkSize {
			cur.end = p.end
			continue
		}
		out = append(out, cur)
		cur = p
	}
	return append(out, cur)
}

// absorbSmallSpans 将低于 MinChunkSize 的分块并入前一个分块
// （没有前块时并入后一个），内容不会被静默丢弃。
func (c *RecursiveChunker) absorbSmallSpans(text string, spans []span) []span {
	if c.cfg.MinChunkSize <= 0 || len(spans) <= 1 {
		return spans
	}

	tooSmall := func(sp span) bool {
		content := strings.TrimSpace(text[sp.start:sp.end])
		return utf8.RuneCountInString(content) < c.cfg.MinChunkSize
	}

	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		if tooSmall(sp) && len(out) > 0 {
			out[len(out)-1].end = sp.end
			continue
		}
		out = append(out, sp)
	}

	// 首块过小且后面还有分块时，向后并入第二块
	if len(out) >= 2 && tooSmall(out[0]) {
		out[1].start = out[0].start
		out = out[1:]
	}
	return out
}

// buildChunks 将区间转换为 TextChunk，计算重叠与起始偏移
func (c *RecursiveChunker) buildChunks(text string, spans []span) []*types.TextChunk {
	chunks := make([]*types.TextChunk, 0, len(spans))

	// 字节偏移 -> 字符偏移的单调游标
	byteCursor, runeCursor := 0, 0
	runeOffset := func(byteOff int) int {
		runeCursor += utf8.RuneCountInString(text[byteCursor:byteOff])
		byteCursor = byteOff
		return runeCursor
	}

	for _, sp := range spans {
		content := text[sp.start:sp.end]
		startByte := sp.start
		if c.cfg.StripWhitespace {
			trimmed := strings.TrimLeftFunc(content, unicode.IsSpace)
			startByte += len(content) - len(trimmed)
			content = strings.TrimRightFunc(trimmed, unicode.IsSpace)
		}
		if content == "" {
			continue
		}

		md := types.ChunkMetadata{
			ChunkType:       types.ChunkTypeParagraph,
			ConfidenceScore: 1.0,
		}
		if c.cfg.AddStartIndex {
			start := runeOffset(startByte)
			end := start + utf8.RuneCountInString(content)
			md.StartPosition = &start
			md.EndPosition = &end
		}

		chunk := types.NewTextChunk(content, md)

		if c.cfg.ChunkOverlap > 0 && len(chunks) > 0 {
			chunk.OverlapContent = c.overlapTail(chunks[len(chunks)-1].Content)
		}

		chunks = append(chunks, chunk)
	}
	return chunks
}

// overlapTail 取前一个分块末尾不超过 ChunkOverlap 的内容作为重叠上下文。
// 切点落在英文单词中间时向后收缩到最近的词边界；上限约束优先于词边界，
// 重叠永远不会超过 ChunkOverlap。重叠只做记录，不计入分块内容和大小。
func (c *RecursiveChunker) overlapTail(prev string) string {
	overlap := c.cfg.ChunkOverlap
	if overlap <= 0 || prev == "" {
		return ""
	}

	if c.tokenEnc != nil {
		tokens := c.tokenEnc.Encode(prev, nil, nil)
		if len(tokens) <= overlap {
			return prev
		}
		return c.tokenEnc.Decode(tokens[len(tokens)-overlap:])
	}

	r := []rune(prev)
	if len(r) <= overlap {
		return prev
	}

	cut := len(r) - overlap
	if isASCIIWordRune(r[cut-1]) && isASCIIWordRune(r[cut]) {
		// 切在单词中间，向后找词边界
		for i := cut; i < len(r); i++ {
			if !isASCIIWordRune(r[i]) {
				return string(r[i+1:])
			}
		}
		// 整个尾部是一个超长单词，找不到词边界，
		// 按上限截断，不为保全单词而超出 ChunkOverlap
	}
	return string(r[cut:])
}

func isASCIIWordRune(r rune) bool {
	return r < utf8.RuneSelf &&
		(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

var (
	crlfPattern      = regexp.MustCompile(`\r\n|\r`)
	trailingWS       = regexp.MustCompile(`[ \t]+\n`)
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
)

// preprocessText 标准化换行、移除行尾空格、压缩连续空行并去除首尾空白
func preprocessText(text string) string {
	text = crlfPattern.ReplaceAllString(text, "\n")
	text = trailingWS.ReplaceAllString(text, "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
