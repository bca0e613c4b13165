package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/errors"
	"github.com/aerokb/rag-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

const maintenanceDoc = `发动机滑油系统检查程序。

步骤1 打开整流罩，检查滑油量是否在正常刻度范围，滑油压力应为 45 psi。
步骤2 检查液压系统管路有无渗漏，必要时更换密封件。
步骤3 检查起落架收放机构的润滑状态。

警告：操作时必须断开电源，确保发动机完全冷却后方可作业。

全部检查完成后填写维修记录并签字归档。`

// TestChunkDocument 完整流程：预设解析、分割、ID 分配、评分
func TestChunkDocument(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.ChunkDocument(context.Background(), Request{
		Text: maintenanceDoc,
		Doc:  types.DocumentInfo{FileName: "engine_check.txt", Title: "发动机维修手册"},
	})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}

	// 标题含"维修/手册"关键词，应命中维修手册预设
	if res.Preset != "aviation_maintenance" {
		t.Errorf("Preset = %q, want aviation_maintenance", res.Preset)
	}
	if len(res.Chunks) == 0 {
		t.Fatal("got 0 chunks")
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}

	for i, chunk := range res.Chunks {
		wantID := fmt.Sprintf("engine_check_%04d", i+1)
		if chunk.Metadata.ChunkID != wantID {
			t.Errorf("chunk[%d] ID = %q, want %q", i, chunk.Metadata.ChunkID, wantID)
		}
		if chunk.Metadata.SourceDocument != "engine_check.txt" {
			t.Errorf("chunk[%d] SourceDocument = %q", i, chunk.Metadata.SourceDocument)
		}
		if chunk.QualityScore <= 0.0 || chunk.QualityScore > 1.0 {
			t.Errorf("chunk[%d] QualityScore = %v, out of (0, 1]", i, chunk.QualityScore)
		}
	}
}

// TestChunkDocumentEmpty 空文本返回空分块列表，不报错
func TestChunkDocumentEmpty(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.ChunkDocument(context.Background(), Request{
		Text: "   \n  ",
		Doc:  types.DocumentInfo{FileName: "empty.txt"},
	})
	if err != nil {
		t.Fatalf("ChunkDocument() error = %v", err)
	}
	if len(res.Chunks) != 0 {
		t.Errorf("got %d chunks, want 0", len(res.Chunks))
	}
}

// TestChunkDocumentUnknownPreset 显式指定未注册的预设名返回配置错误
func TestChunkDocumentUnknownPreset(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ChunkDocument(context.Background(), Request{
		Text:   "内容",
		Doc:    types.DocumentInfo{FileName: "a.txt"},
		Preset: "no_such_preset",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, errors.ErrKBUnknownPreset) {
		t.Errorf("error code = %d, want ErrKBUnknownPreset", errors.ExtractCode(err))
	}
}

// TestSelectPreset 选择规则的优先级：
// 显式文档类型 > 标题关键词 > 扩展名 > 兜底
func TestSelectPreset(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		doc  types.DocumentInfo
		want string
	}{
		{
			// 显式类型优先于标题关键词
			"explicit_type_wins",
			types.DocumentInfo{FileName: "a.pdf", DocumentType: "regulation", Title: "维修手册"},
			"aviation_regulation",
		},
		{
			"title_maintenance",
			types.DocumentInfo{FileName: "a.pdf", Title: "A320 维修手册"},
			"aviation_maintenance",
		},
		{
			"subject_standard",
			types.DocumentInfo{FileName: "a.docx", Subject: "technical specification"},
			"aviation_standard",
		},
		{
			"title_training",
			types.DocumentInfo{FileName: "b.txt", Title: "乘务员培训教材"},
			"aviation_training",
		},
		{
			"extension_markdown",
			types.DocumentInfo{FileName: "readme.md"},
			"markdown",
		},
		{
			"extension_plain",
			types.DocumentInfo{FileName: "notes.txt"},
			FallbackPreset,
		},
		{
			"unknown_everything",
			types.DocumentInfo{FileName: "data.bin"},
			FallbackPreset,
		},
		{
			"no_metadata",
			types.DocumentInfo{},
			FallbackPreset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.selectPreset(tt.doc)
			if got != tt.want {
				t.Errorf("selectPreset(%+v) = %q, want %q", tt.doc, got, tt.want)
			}
		})
	}
}

// TestChunkIDGen 分块 ID 在并发下仍然唯一且格式正确
func TestChunkIDGen(t *testing.T) {
	gen := newChunkIDGen("manual")

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if !strings.HasPrefix(id, "manual_") {
			t.Errorf("id %q has wrong prefix", id)
		}
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

// TestChunkDocuments 批量接口：结果顺序与输入一致，单个失败不影响其他文档
func TestChunkDocuments(t *testing.T) {
	e := newTestEngine(t)

	pool, err := workerpool.New(&workerpool.Config{Workers: 4}, zap.NewNop())
	if err != nil {
		t.Fatalf("workerpool.New() error = %v", err)
	}
	defer pool.Shutdown()

	reqs := []Request{
		{Text: maintenanceDoc, Doc: types.DocumentInfo{FileName: "doc1.txt", Title: "维修手册"}},
		{Text: "内容", Doc: types.DocumentInfo{FileName: "doc2.txt"}, Preset: "no_such_preset"},
		{Text: "规章第一条：飞行前必须完成放行检查。", Doc: types.DocumentInfo{FileName: "doc3.txt", Title: "运行规章制度"}},
	}

	results, errs := e.ChunkDocuments(context.Background(), reqs, pool)
	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("got %d results / %d errors, want 3/3", len(results), len(errs))
	}

	if errs[0] != nil {
		t.Errorf("doc1 error = %v, want nil", errs[0])
	}
	if results[0] == nil || results[0].Preset != "aviation_maintenance" {
		t.Errorf("doc1 result = %+v", results[0])
	}
	if errs[1] == nil {
		t.Error("doc2 expected unknown preset error, got nil")
	}
	if errs[2] != nil {
		t.Errorf("doc3 error = %v, want nil", errs[2])
	}
	if results[2] == nil || results[2].Preset != "aviation_regulation" {
		t.Errorf("doc3 result preset = %v, want aviation_regulation", results[2])
	}
}

// TestChunkDocumentsNilPool 不传工作池时退化为串行处理，不会崩溃
func TestChunkDocumentsNilPool(t *testing.T) {
	e := newTestEngine(t)

	reqs := []Request{
		{Text: maintenanceDoc, Doc: types.DocumentInfo{FileName: "doc1.txt", Title: "维修手册"}},
		{Text: "内容", Doc: types.DocumentInfo{FileName: "doc2.txt"}, Preset: "no_such_preset"},
	}

	results, errs := e.ChunkDocuments(context.Background(), reqs, nil)
	if len(results) != 2 || len(errs) != 2 {
		t.Fatalf("got %d results / %d errors, want 2/2", len(results), len(errs))
	}
	if errs[0] != nil || results[0] == nil {
		t.Errorf("doc1 result = %+v, error = %v", results[0], errs[0])
	}
	if errs[1] == nil {
		t.Error("doc2 expected unknown preset error, got nil")
	}
}

// TestValidateChunks 校验报告统计有效/无效分块和大小分布
func TestValidateChunks(t *testing.T) {
	mkChunk := func(content string, score float64) *types.TextChunk {
		c := types.NewTextChunk(content, types.ChunkMetadata{})
		c.QualityScore = score
		return c
	}

	chunks := []*types.TextChunk{
		mkChunk(strings.Repeat("正常内容。", 30), 0.8), // 150 字符，合格
		mkChunk("太小", 0.8),                         // 过小
		mkChunk(strings.Repeat("低质量内容。", 30), 0.2), // 质量过低
	}

	report := ValidateChunks(chunks, 100, 2000)
	if report.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", report.TotalChunks)
	}
	if report.ValidChunks != 1 || report.InvalidChunks != 2 {
		t.Errorf("valid/invalid = %d/%d, want 1/2", report.ValidChunks, report.InvalidChunks)
	}
	if len(report.Issues) != 2 {
		t.Errorf("Issues = %v, want 2 entries", report.Issues)
	}
	if report.Sizes.MinSize != 2 || report.Sizes.MaxSize != 180 {
		t.Errorf("size distribution = %+v", report.Sizes)
	}

	empty := ValidateChunks(nil, 100, 2000)
	if empty.TotalChunks != 0 || len(empty.Issues) != 0 {
		t.Errorf("empty report = %+v", empty)
	}
}

// TestAnalyzeChunk 结构识别：章节、步骤、表格、列表
func TestAnalyzeChunk(t *testing.T) {
	tests := []struct {
		name    string
		content string
		doc     types.DocumentInfo
		want    types.ChunkType
	}{
		{"chapter", "第一章 总则\n本章规定了适用范围。", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeChapter},
		{"section", "Section 3 Hydraulic System\ndetails follow.", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeSection},
		{"procedure", "检查开始。步骤1 断开电源。步骤2 打开盖板。", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeOperationProcedure},
		{"table", "| 参数 | 数值 |\n| 压力 | 45 |", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeTable},
		{"list", "- 检查燃油\n- 检查滑油\n- 检查轮胎", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeList},
		{"default", "这是一段普通的说明文字而已。", types.DocumentInfo{FileName: "a.txt"}, types.ChunkTypeMaintenanceManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := types.NewTextChunk(tt.content, types.ChunkMetadata{})
			analyzeChunk(chunk, types.ChunkTypeMaintenanceManual, tt.doc)
			if chunk.Metadata.ChunkType != tt.want {
				t.Errorf("ChunkType = %q, want %q", chunk.Metadata.ChunkType, tt.want)
			}
		})
	}
}

// TestAnalyzeMarkdownHeading Markdown 分块取首个标题作为章节标题
func TestAnalyzeMarkdownHeading(t *testing.T) {
	chunk := types.NewTextChunk("## 液压系统维护\n\n定期检查油位。", types.ChunkMetadata{})
	analyzeChunk(chunk, types.ChunkTypeParagraph, types.DocumentInfo{FileName: "manual.md"})

	if chunk.Metadata.SectionTitle != "液压系统维护" {
		t.Errorf("SectionTitle = %q, want 液压系统维护", chunk.Metadata.SectionTitle)
	}
	if chunk.Metadata.ChunkType != types.ChunkTypeSection {
		t.Errorf("ChunkType = %q, want section", chunk.Metadata.ChunkType)
	}
}
