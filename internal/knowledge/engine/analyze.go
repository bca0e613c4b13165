package engine

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// 文档结构模式：章、节、条款、步骤
var (
	chapterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^第[一二三四五六七八九十\d]+章`),
		regexp.MustCompile(`(?i)^Chapter\s+\d+`),
	}
	sectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^第[一二三四五六七八九十\d]+节`),
		regexp.MustCompile(`(?i)^Section\s+\d+`),
		regexp.MustCompile(`^\d+\.\d+\s+`),
		regexp.MustCompile(`^§\s*\d+`),
	}
	procedurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`步骤\s*\d+`),
		regexp.MustCompile(`(?i)Step\s+\d+`),
		regexp.MustCompile(`任务\s*\d+`),
		regexp.MustCompile(`(?i)Task\s+\d+`),
		regexp.MustCompile(`[①②③④⑤⑥⑦⑧⑨⑩]`),
	}
	tablePattern    = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	codePattern     = regexp.MustCompile("```")
	listLinePattern = regexp.MustCompile(`(?m)^\s*(?:[-•*]|\d+\.|\([a-zA-Z0-9]+\))\s`)
)

var markdown = goldmark.New()

// analyzeChunk 识别分块的结构类型和章节标题。
// 结构标记（章节、步骤、表格等）优先于预设的默认类型。
func analyzeChunk(chunk *types.TextChunk, defaultType types.ChunkType, doc types.DocumentInfo) {
	content := chunk.Content

	if doc.FileExtension() == ".md" {
		if title, level := markdownHeading(content); title != "" {
			chunk.Metadata.SectionTitle = title
			if level == 1 {
				chunk.Metadata.ChunkType = types.ChunkTypeChapter
			} else {
				chunk.Metadata.ChunkType = types.ChunkTypeSection
			}
			return
		}
	}

	firstLine := strings.TrimSpace(content)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = strings.TrimSpace(firstLine[:i])
	}

	switch {
	case matchesAnyPattern(firstLine, chapterPatterns):
		chunk.Metadata.ChunkType = types.ChunkTypeChapter
		chunk.Metadata.SectionTitle = firstLine
	case matchesAnyPattern(firstLine, sectionPatterns):
		chunk.Metadata.ChunkType = types.ChunkTypeSection
		chunk.Metadata.SectionTitle = firstLine
	case codePattern.MatchString(content):
		chunk.Metadata.ChunkType = types.ChunkTypeCode
	case len(tablePattern.FindAllString(content, 2)) >= 2:
		chunk.Metadata.ChunkType = types.ChunkTypeTable
	case matchesAnyPattern(content, procedurePatterns):
		chunk.Metadata.ChunkType = types.ChunkTypeOperationProcedure
	case len(listLinePattern.FindAllString(content, 3)) >= 2:
		chunk.Metadata.ChunkType = types.ChunkTypeList
	default:
		chunk.Metadata.ChunkType = defaultType
	}
}

// markdownHeading 返回分块内第一个 Markdown 标题的文本和层级
func markdownHeading(content string) (string, int) {
	src := []byte(content)
	root := markdown.Parser().Parse(gmtext.NewReader(src))

	var title string
	var level int
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = headingText(h, src)
			level = h.Level
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title, level
}

func headingText(h *ast.Heading, src []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
		}
	}
	return strings.TrimSpace(sb.String())
}

func matchesAnyPattern(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
