package engine

import (
	"fmt"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// lowQualityThreshold 低于该质量分的分块会被标记为问题分块
const lowQualityThreshold = 0.3

// SizeDistribution 分块大小分布
type SizeDistribution struct {
	MinSize int     `json:"min_size"`
	MaxSize int     `json:"max_size"`
	AvgSize float64 `json:"avg_size"`
}

// ValidationReport 分块结果校验报告
type ValidationReport struct {
	TotalChunks     int              `json:"total_chunks"`
	ValidChunks     int              `json:"valid_chunks"`
	InvalidChunks   int              `json:"invalid_chunks"`
	AvgQualityScore float64          `json:"avg_quality_score"`
	Sizes           SizeDistribution `json:"size_distribution"`
	Issues          []string         `json:"issues,omitempty"`
}

// ValidateChunks 校验分块结果：大小越界和低质量分块都会被记为问题。
// 仅产出报告，不修改分块。
func ValidateChunks(chunks []*types.TextChunk, minSize, maxSize int) *ValidationReport {
	report := &ValidationReport{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return report
	}

	totalChars := 0
	totalScore := 0.0
	report.Sizes.MinSize = chunks[0].CharacterCount

	for i, chunk := range chunks {
		valid := true

		if chunk.CharacterCount < minSize {
			report.Issues = append(report.Issues,
				fmt.Sprintf("chunk %d too small: %d chars", i, chunk.CharacterCount))
			valid = false
		} else if chunk.CharacterCount > maxSize {
			report.Issues = append(report.Issues,
				fmt.Sprintf("chunk %d too large: %d chars", i, chunk.CharacterCount))
			valid = false
		}

		if chunk.QualityScore < lowQualityThreshold {
			report.Issues = append(report.Issues,
				fmt.Sprintf("chunk %d low quality: %.3f", i, chunk.QualityScore))
			valid = false
		}

		if valid {
			report.ValidChunks++
		} else {
			report.InvalidChunks++
		}

		totalChars += chunk.CharacterCount
		totalScore += chunk.QualityScore
		if chunk.CharacterCount < report.Sizes.MinSize {
			report.Sizes.MinSize = chunk.CharacterCount
		}
		if chunk.CharacterCount > report.Sizes.MaxSize {
			report.Sizes.MaxSize = chunk.CharacterCount
		}
	}

	report.Sizes.AvgSize = float64(totalChars) / float64(len(chunks))
	report.AvgQualityScore = totalScore / float64(len(chunks))
	return report
}
