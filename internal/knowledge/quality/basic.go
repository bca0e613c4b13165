package quality

import (
	"strings"
	"time"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// BasicAssessor 基础质量评估策略：只看分块长度是否落在合理区间，
// 不做任何内容分析。适合对评分延迟敏感或非航空领域的文档。
type BasicAssessor struct {
	size SizeConfig
}

// NewBasicAssessor 创建基础质量评估策略
func NewBasicAssessor(size SizeConfig) *BasicAssessor {
	if size.TargetChunkSize <= 0 {
		size = DefaultSizeConfig()
	}
	return &BasicAssessor{size: size}
}

// Name 返回策略名称
func (b *BasicAssessor) Name() string { return "basic" }

// Dimensions 返回支持的评估维度
func (b *BasicAssessor) Dimensions() []string {
	return []string{DimensionSizeAppropriateness, DimensionInformationDensity}
}

// Assess 基于长度区间的快速评分。size 零值时使用策略默认大小配置。
func (b *BasicAssessor) Assess(chunk *types.TextChunk, size SizeConfig) Metrics {
	start := time.Now()

	if size.TargetChunkSize <= 0 {
		size = b.size
	}

	if chunk == nil || strings.TrimSpace(chunk.Content) == "" {
		return Metrics{OverallScore: 0.0, Confidence: 1.0, StrategyName: b.Name()}
	}

	c := chunk.CharacterCount
	target := float64(size.TargetChunkSize)
	var score float64
	switch {
	case float64(c) >= target*0.8 && float64(c) <= target*1.2:
		score = 0.8
	case c >= size.MinChunkSize && c <= size.MaxChunkSize:
		// 区间内按接近目标的程度给 0.5~0.8
		ratio := float64(c) / target
		if ratio > 1 {
			ratio = 1 / ratio
		}
		score = 0.5 + ratio*0.3
	case c < size.MinChunkSize:
		score = 0.2
	default:
		score = 0.3
	}

	// 空白比例修正
	ratio := nonSpaceRatio(chunk.Content)
	if ratio < 0.3 {
		score *= 0.5
	} else if ratio > 0.8 {
		score *= 1.1
	}

	final := round3(clamp01(maxFloat(scoreFloor, score)))
	return Metrics{
		OverallScore: final,
		DimensionScores: map[string]float64{
			DimensionSizeAppropriateness: final,
		},
		Confidence:     0.6,
		StrategyName:   b.Name(),
		ProcessingTime: time.Since(start),
	}
}
