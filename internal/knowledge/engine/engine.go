// Package engine 文档分块引擎：根据文档元数据选择分块预设，
// 调度递归分块器和质量评估，产出带质量分的有序分块列表。
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aerokb/rag-backend/internal/knowledge/chunker"
	"github.com/aerokb/rag-backend/internal/knowledge/quality"
	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/errors"
	"github.com/aerokb/rag-backend/internal/pkg/logger"
	"github.com/aerokb/rag-backend/internal/pkg/workerpool"
)

// Engine 分块引擎。创建后可被多个 goroutine 共享；
// RegisterPreset 需要在并发使用开始前完成。
type Engine struct {
	presets map[string]Preset
	rules   []selectionRule
	quality *quality.Manager
	log     *logger.Logger
}

// Options 引擎选项
type Options struct {
	Presets       map[string]Preset // 为空使用内置预设表
	DefaultPreset string            // 为空使用 generic
	Quality       *quality.Manager  // 为空时自动创建
	Logger        *logger.Logger
}

// New 创建分块引擎
func New(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}
	log = log.Named("chunking")

	presets := opts.Presets
	if presets == nil {
		presets = BuiltinPresets()
	}
	if _, ok := presets[FallbackPreset]; !ok {
		return nil, errors.Newf(errors.ErrKBInvalidChunkConfig,
			"preset table must contain the fallback preset %q", FallbackPreset)
	}
	if opts.DefaultPreset != "" {
		if _, ok := presets[opts.DefaultPreset]; !ok {
			return nil, errors.Newf(errors.ErrKBUnknownPreset,
				"default preset %q is not registered", opts.DefaultPreset)
		}
	}

	qm := opts.Quality
	if qm == nil {
		qm = quality.NewManager(quality.DefaultSizeConfig(), log)
	}

	return &Engine{
		presets: presets,
		rules:   defaultRules(),
		quality: qm,
		log:     log,
	}, nil
}

// Request 单个文档的分块请求
type Request struct {
	Text   string
	Doc    types.DocumentInfo
	Preset string // 显式指定预设名，空值走自动选择
}

// Result 分块结果
type Result struct {
	RunID    string             `json:"run_id"`
	Preset   string             `json:"preset"`
	Chunks   []*types.TextChunk `json:"chunks"`
	Warnings []string           `json:"warnings,omitempty"`
	Elapsed  time.Duration      `json:"elapsed"`
}

// ChunkDocument 对单个文档执行 预设解析 -> 分割 -> 结构分析 -> 评分 流程。
// 空文本返回空分块列表；配置错误在任何分割工作开始前返回。
func (e *Engine) ChunkDocument(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	presetName := req.Preset
	if presetName == "" {
		presetName = e.selectPreset(req.Doc)
	}
	preset, err := e.ResolvePreset(presetName)
	if err != nil {
		return nil, err
	}

	splitter, err := chunker.NewRecursiveChunker(preset.Splitter, e.log)
	if err != nil {
		return nil, err
	}

	chunks, err := splitter.Chunk(ctx, req.Text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrKBProcessingFailed, req.Doc.FileName)
	}

	e.postProcess(chunks, req.Doc, preset)

	res := &Result{
		RunID:    runID,
		Preset:   presetName,
		Chunks:   chunks,
		Warnings: splitter.Warnings(),
		Elapsed:  time.Since(start),
	}

	e.log.Info("文档分块完成",
		zap.String("run_id", runID),
		zap.String("file", req.Doc.FileName),
		zap.String("preset", presetName),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// ChunkDocuments 并行处理一批文档，结果顺序与输入一致。
// 单个文档的失败不影响其他文档，对应位置返回错误。
// pool 为 nil 时退化为串行处理。
func (e *Engine) ChunkDocuments(ctx context.Context, reqs []Request, pool *workerpool.Pool) ([]*Result, []error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	if pool == nil {
		for i, req := range reqs {
			results[i], errs[i] = e.ChunkDocument(ctx, req)
		}
		return results, errs
	}

	var wg sync.WaitGroup
	for i, req := range reqs {
		i, req := i, req
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i], errs[i] = e.ChunkDocument(ctx, req)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return results, errs
}

// postProcess 分配分块 ID、识别结构、重算统计并评分。
// 大小适当性以预设自己的目标/上下限为准。
func (e *Engine) postProcess(chunks []*types.TextChunk, doc types.DocumentInfo, preset Preset) {
	gen := newChunkIDGen(doc.BaseName())
	now := time.Now()
	size := preset.sizeConfig()

	for _, chunk := range chunks {
		chunk.Metadata.ChunkID = gen.next()
		chunk.Metadata.SourceDocument = doc.FileName
		chunk.Metadata.ProcessingTimestamp = now

		analyzeChunk(chunk, preset.ChunkType, doc)
		chunk.Recount()

		metrics := e.quality.AssessChunkWithSize(chunk, preset.Quality, size)
		chunk.QualityScore = metrics.OverallScore
	}
}

// Quality 返回质量评估管理器
func (e *Engine) Quality() *quality.Manager { return e.quality }

// chunkIDGen 互斥锁保护的分块 ID 生成器，
// ID 形如 <文档基名>_0001，在一次处理内单调递增
type chunkIDGen struct {
	mu   sync.Mutex
	base string
	seq  int
}

func newChunkIDGen(base string) *chunkIDGen {
	return &chunkIDGen{base: base}
}

func (g *chunkIDGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s_%04d", g.base, g.seq)
}
