package quality

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/logger"
)

const defaultCacheSize = 1000

// fallbackScore 评估策略崩溃时的降级分数
const fallbackScore = 0.5

// Manager 质量评估管理器：维护策略注册表和评估结果缓存。
// 并发安全，单个评估策略崩溃时降级为基线分，不会让分块流程失败。
type Manager struct {
	mu        sync.Mutex
	assessors map[string]Assessor
	def       string
	size      SizeConfig // 未显式传入大小配置时的默认值

	cache     map[string]*list.Element
	lru       *list.List
	cacheSize int

	hits   uint64
	misses uint64

	log *logger.Logger
}

type cacheEntry struct {
	key     string
	metrics Metrics
}

// NewManager 创建管理器并注册内置策略（aviation、basic），默认使用 aviation
func NewManager(size SizeConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.L()
	}
	if size.TargetChunkSize <= 0 {
		size = DefaultSizeConfig()
	}
	m := &Manager{
		assessors: make(map[string]Assessor),
		def:       "aviation",
		size:      size,
		cache:     make(map[string]*list.Element),
		lru:       list.New(),
		cacheSize: defaultCacheSize,
		log:       log.Named("quality"),
	}
	m.Register(NewAviationAssessor(size))
	m.Register(NewBasicAssessor(size))
	return m
}

// Register 注册评估策略，同名策略会被覆盖
func (m *Manager) Register(a Assessor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessors[a.Name()] = a
}

// Available 返回已注册的策略名称
func (m *Manager) Available() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.assessors))
	for name := range m.assessors {
		names = append(names, name)
	}
	return names
}

// SetDefault 设置默认策略，未注册的名称返回错误
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessors[name]; !ok {
		return fmt.Errorf("unknown quality strategy: %s", name)
	}
	m.def = name
	return nil
}

// AssessChunk 用指定策略和管理器默认大小配置评估分块质量，
// strategy 为空时使用默认策略。
func (m *Manager) AssessChunk(chunk *types.TextChunk, strategy string) Metrics {
	return m.AssessChunkWithSize(chunk, strategy, m.size)
}

// AssessChunkWithSize 用指定策略和给定大小配置评估分块质量。
// 大小适当性维度以 size 的目标/上下限为准，不同预设的分块各按自己的
// 目标区间评分；size 零值回退到管理器默认大小配置。
// 未注册的策略名回退到默认策略；策略内部 panic 会被捕获并降级为基线分。
func (m *Manager) AssessChunkWithSize(chunk *types.TextChunk, strategy string, size SizeConfig) Metrics {
	if size.TargetChunkSize <= 0 {
		size = m.size
	}

	m.mu.Lock()
	if strategy == "" {
		strategy = m.def
	}
	a, ok := m.assessors[strategy]
	if !ok {
		m.log.Warn("质量评估策略未注册，回退到默认策略",
			zap.String("strategy", strategy),
			zap.String("fallback", m.def))
		strategy = m.def
		a = m.assessors[strategy]
	}
	m.mu.Unlock()

	key := cacheKey(strategy, chunk, size)
	if metrics, ok := m.cacheGet(key); ok {
		return metrics
	}

	metrics := m.safeAssess(a, chunk, size)
	m.cachePut(key, metrics)
	return metrics
}

// AssessBatch 批量评估，返回与输入等长的结果切片
func (m *Manager) AssessBatch(chunks []*types.TextChunk, strategy string) []Metrics {
	out := make([]Metrics, len(chunks))
	for i, chunk := range chunks {
		out[i] = m.AssessChunk(chunk, strategy)
	}
	return out
}

// safeAssess 执行评估并捕获 panic。评分是尽力而为的启发式，
// 任何崩溃都降级为低置信度的基线分。
func (m *Manager) safeAssess(a Assessor, chunk *types.TextChunk, size SizeConfig) (metrics Metrics) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("质量评估崩溃，降级为基线分",
				zap.String("strategy", a.Name()),
				zap.Any("panic", r))
			metrics = Metrics{
				OverallScore: fallbackScore,
				Confidence:   0.0,
				StrategyName: a.Name(),
			}
		}
	}()
	return a.Assess(chunk, size)
}

// CacheStats 返回缓存命中/未命中计数
func (m *Manager) CacheStats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// ClearCache 清空评估结果缓存
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*list.Element)
	m.lru.Init()
}

func (m *Manager) cacheGet(key string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.cache[key]; ok {
		m.hits++
		m.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).metrics, true
	}
	m.misses++
	return Metrics{}, false
}

func (m *Manager) cachePut(key string, metrics Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.cache[key]; ok {
		elem.Value.(*cacheEntry).metrics = metrics
		m.lru.MoveToFront(elem)
		return
	}
	m.cache[key] = m.lru.PushFront(&cacheEntry{key: key, metrics: metrics})
	for m.lru.Len() > m.cacheSize {
		oldest := m.lru.Back()
		m.lru.Remove(oldest)
		delete(m.cache, oldest.Value.(*cacheEntry).key)
	}
}

// cacheKey 由策略名、大小配置、文档类型和内容指纹构成。
// 大小配置必须参与键值，同一内容在不同预设下的评分不能互相串用。
func cacheKey(strategy string, chunk *types.TextChunk, size SizeConfig) string {
	h := fnv.New64a()
	h.Write([]byte(chunk.Content))
	return fmt.Sprintf("%s:%d/%d/%d:%s:%x",
		strategy, size.TargetChunkSize, size.MinChunkSize, size.MaxChunkSize,
		chunk.Metadata.ChunkType, h.Sum64())
}
