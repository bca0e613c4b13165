// Package quality 分块质量评估：对每个文本分块给出 [0,1] 的检索可用性启发式评分。
//
// 评分是启发式规则，不保证语义正确性；评分失败只会降级为基线分，
// 永远不会中断分块流程。
package quality

import (
	"math"
	"time"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// 评估维度名称
const (
	DimensionAviationSpecific     = "aviation_specific"
	DimensionSemanticCompleteness = "semantic_completeness"
	DimensionInformationDensity   = "information_density"
	DimensionStructureQuality     = "structure_quality"
	DimensionSizeAppropriateness  = "size_appropriateness"
)

// Metrics 质量评估结果
type Metrics struct {
	OverallScore    float64            `json:"overall_score"`
	DimensionScores map[string]float64 `json:"dimension_scores,omitempty"`
	Confidence      float64            `json:"confidence"`
	StrategyName    string             `json:"strategy_name"`
	ProcessingTime  time.Duration      `json:"processing_time"`
}

// Assessor 质量评估策略接口
type Assessor interface {
	// Assess 评估单个分块的质量。size 是本次评估生效的大小配置，
	// 零值时使用策略自身的默认大小配置。
	Assess(chunk *types.TextChunk, size SizeConfig) Metrics

	// Name 返回策略的唯一标识
	Name() string

	// Dimensions 返回该策略支持的评估维度
	Dimensions() []string
}

// clamp01 把维度评分限制在 [0,1]
func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// round3 保留三位小数
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
