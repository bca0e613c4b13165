package quality

import "github.com/aerokb/rag-backend/internal/knowledge/types"

// Weights 五个评估维度的权重向量，每组权重之和为 1.0
type Weights struct {
	AviationSpecific     float64
	SemanticCompleteness float64
	InformationDensity   float64
	StructureQuality     float64
	SizeAppropriateness  float64
}

// defaultWeights 未识别文档类型使用的默认权重
var defaultWeights = Weights{
	AviationSpecific:     0.25,
	SemanticCompleteness: 0.25,
	InformationDensity:   0.25,
	StructureQuality:     0.20,
	SizeAppropriateness:  0.05,
}

// weightsByType 文档类型 -> 权重向量，启动时构建，运行期只读
var weightsByType = map[types.ChunkType]Weights{
	types.ChunkTypeMaintenanceManual: {
		AviationSpecific:     0.30,
		SemanticCompleteness: 0.25,
		InformationDensity:   0.20,
		StructureQuality:     0.20,
		SizeAppropriateness:  0.05,
	},
	types.ChunkTypeRegulation: {
		AviationSpecific:     0.20,
		SemanticCompleteness: 0.30,
		InformationDensity:   0.25,
		StructureQuality:     0.20,
		SizeAppropriateness:  0.05,
	},
	types.ChunkTypeTechnicalStandard: {
		AviationSpecific:     0.25,
		SemanticCompleteness: 0.25,
		InformationDensity:   0.25,
		StructureQuality:     0.20,
		SizeAppropriateness:  0.05,
	},
	types.ChunkTypeTrainingMaterial: {
		AviationSpecific:     0.20,
		SemanticCompleteness: 0.30,
		InformationDensity:   0.20,
		StructureQuality:     0.25,
		SizeAppropriateness:  0.05,
	},
}

// WeightsFor 返回文档类型对应的权重，未配置的类型使用默认权重
func WeightsFor(ct types.ChunkType) Weights {
	if w, ok := weightsByType[ct]; ok {
		return w
	}
	return defaultWeights
}

// SizeConfig 大小适当性评分使用的尺寸配置
type SizeConfig struct {
	MinChunkSize    int // 最小可接受大小
	MaxChunkSize    int // 最大可接受大小
	TargetChunkSize int // 目标大小，最优区间为 [0.8x, 1.2x]
}

// DefaultSizeConfig 默认尺寸配置
func DefaultSizeConfig() SizeConfig {
	return SizeConfig{
		MinChunkSize:    100,
		MaxChunkSize:    2000,
		TargetChunkSize: 1000,
	}
}
