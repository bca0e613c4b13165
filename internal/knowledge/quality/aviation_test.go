package quality

import (
	"testing"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

func maintenanceChunk(content string) *types.TextChunk {
	return types.NewTextChunk(content, types.ChunkMetadata{
		ChunkType: types.ChunkTypeMaintenanceManual,
	})
}

// TestAssessEmptyChunk 空分块得 0 分
func TestAssessEmptyChunk(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	for _, content := range []string{"", "   \n\t  "} {
		m := a.Assess(maintenanceChunk(content), SizeConfig{})
		if m.OverallScore != 0.0 {
			t.Errorf("Assess(%q) = %v, want 0.0", content, m.OverallScore)
		}
	}
	if m := a.Assess(nil, SizeConfig{}); m.OverallScore != 0.0 {
		t.Errorf("Assess(nil) = %v, want 0.0", m.OverallScore)
	}
}

// TestAssessTinyChunk 少于 10 个字符的分块固定得 0.1 分
func TestAssessTinyChunk(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	m := a.Assess(maintenanceChunk("短文本"), SizeConfig{})
	if m.OverallScore != 0.1 {
		t.Errorf("OverallScore = %v, want 0.1", m.OverallScore)
	}
}

// TestAssessMaintenanceChunk 结构良好的维修手册分块：
// 术语、完整的安全声明、连续步骤、技术参数，得分应落在 [0.8, 1.0]
func TestAssessMaintenanceChunk(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	content := "发动机滑油系统检查程序。\n" +
		"步骤1 打开整流罩检查滑油量，滑油压力应为 45 psi。\n" +
		"步骤2 检查液压系统管路有无渗漏。\n" +
		"警告：操作时必须断开电源，确保发动机完全冷却后方可作业。\n" +
		"全部检查完成。"
	m := a.Assess(maintenanceChunk(content), SizeConfig{})

	if m.OverallScore < 0.8 || m.OverallScore > 1.0 {
		t.Errorf("OverallScore = %v, want in [0.8, 1.0], dims = %v", m.OverallScore, m.DimensionScores)
	}
	if len(m.DimensionScores) != 5 {
		t.Errorf("got %d dimension scores, want 5", len(m.DimensionScores))
	}
	if m.StrategyName != "aviation" {
		t.Errorf("StrategyName = %q, want aviation", m.StrategyName)
	}
}

// TestAssessWhitespaceGarbage 几乎全是空白的分块得分应落在 [0.1, 0.4]
func TestAssessWhitespaceGarbage(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	m := a.Assess(maintenanceChunk("   \n\n  a   \n\n   "), SizeConfig{})
	if m.OverallScore < 0.1 || m.OverallScore > 0.4 {
		t.Errorf("OverallScore = %v, want in [0.1, 0.4]", m.OverallScore)
	}
}

// TestIncompleteSafetyInfo 有安全关键词但声明不完整的分块被扣分
func TestIncompleteSafetyInfo(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	complete := "警告：维修发动机前必须断开全部电源，并悬挂禁止操作标识牌。"
	truncated := "警告：断电"

	mc := a.Assess(maintenanceChunk(complete), SizeConfig{})
	mt := a.Assess(maintenanceChunk(truncated), SizeConfig{})
	// truncated 不足 10 字符走固定低分路径，这里比较维度分
	if mt.OverallScore >= mc.OverallScore {
		t.Errorf("truncated safety score %v >= complete %v", mt.OverallScore, mc.OverallScore)
	}
}

// TestIncompleteProcedure 步骤编号断档的分块在航空维度上被扣分
func TestIncompleteProcedure(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	continuous := "步骤1 检查发动机滑油。步骤2 检查液压系统。步骤3 记录检查结果，全部工作完成。"
	gapped := "步骤1 检查发动机滑油。步骤4 记录检查结果，全部工作完成。"

	sc := a.Assess(maintenanceChunk(continuous), SizeConfig{}).DimensionScores[DimensionAviationSpecific]
	sg := a.Assess(maintenanceChunk(gapped), SizeConfig{}).DimensionScores[DimensionAviationSpecific]
	if sg >= sc {
		t.Errorf("gapped procedure score %v >= continuous %v", sg, sc)
	}
}

// TestSizeAppropriateness 大小适当性评分的分段行为
func TestSizeAppropriateness(t *testing.T) {
	size := SizeConfig{MinChunkSize: 100, MaxChunkSize: 2000, TargetChunkSize: 1000}

	tests := []struct {
		chars int
		want  float64
	}{
		{1000, 1.0}, // 目标区间内
		{800, 1.0},  // 下边界
		{1200, 1.0}, // 上边界
		{50, 0.15},  // 低于 min：50/100*0.3
	}
	for _, tt := range tests {
		got := sizeAppropriatenessScore(tt.chars, size)
		if got != tt.want {
			t.Errorf("sizeAppropriatenessScore(%d) = %v, want %v", tt.chars, got, tt.want)
		}
	}

	// 区间外单调递减
	if sizeAppropriatenessScore(1500, size) <= sizeAppropriatenessScore(3000, size) {
		t.Error("score should decrease as size grows past the window")
	}
	if sizeAppropriatenessScore(500, size) <= sizeAppropriatenessScore(120, size) {
		t.Error("score should decrease as size shrinks below the window")
	}
}

// TestAssessUsesGivenSize 传入的大小配置决定目标区间：
// 1900 字符的分块在目标 2000 的配置下是满分区间，
// 在默认配置（目标 1000、上限 2000）下则按偏大衰减
func TestAssessUsesGivenSize(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	content := make([]rune, 1900)
	for i := range content {
		content[i] = '检'
	}
	chunk := maintenanceChunk(string(content))

	large := SizeConfig{MinChunkSize: 200, MaxChunkSize: 4000, TargetChunkSize: 2000}
	dl := a.Assess(chunk, large).DimensionScores[DimensionSizeAppropriateness]
	if dl != 1.0 {
		t.Errorf("size dimension with target 2000 = %v, want 1.0", dl)
	}

	dd := a.Assess(chunk, SizeConfig{}).DimensionScores[DimensionSizeAppropriateness]
	if dd >= 1.0 {
		t.Errorf("size dimension with default target = %v, want < 1.0", dd)
	}
}

// TestWeightVectorsSumToOne 每组维度权重之和为 1.0
func TestWeightVectorsSumToOne(t *testing.T) {
	check := func(name string, w Weights) {
		sum := w.AviationSpecific + w.SemanticCompleteness + w.InformationDensity +
			w.StructureQuality + w.SizeAppropriateness
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("weights %s sum = %v, want 1.0", name, sum)
		}
	}
	check("default", defaultWeights)
	for ct, w := range weightsByType {
		check(string(ct), w)
	}
}

// TestScoreRange 任意输入的最终得分都在 [0.1, 1.0]（空分块 0.0 除外）
func TestScoreRange(t *testing.T) {
	a := NewAviationAssessor(DefaultSizeConfig())

	inputs := []string{
		"步骤1 步骤1 步骤1 步骤1 步骤1 步骤1 步骤1 步骤1",
		"发动机发动机发动机发动机发动机",
		"1234567890 1234567890 1234567890",
		"WARNING: do not",
	}
	for _, content := range inputs {
		m := a.Assess(maintenanceChunk(content), SizeConfig{})
		if m.OverallScore < 0.1 || m.OverallScore > 1.0 {
			t.Errorf("Assess(%q) = %v, out of [0.1, 1.0]", content, m.OverallScore)
		}
	}
}

// TestBasicAssessor 基础策略按长度区间评分
func TestBasicAssessor(t *testing.T) {
	b := NewBasicAssessor(DefaultSizeConfig())

	if m := b.Assess(maintenanceChunk(""), SizeConfig{}); m.OverallScore != 0.0 {
		t.Errorf("empty chunk = %v, want 0.0", m.OverallScore)
	}

	// 目标区间内的分块得高分
	long := make([]rune, 1000)
	for i := range long {
		long[i] = '检'
	}
	inWindow := b.Assess(maintenanceChunk(string(long)), SizeConfig{})
	small := b.Assess(maintenanceChunk("太短的分块"), SizeConfig{})
	if inWindow.OverallScore <= small.OverallScore {
		t.Errorf("in-window score %v <= undersized score %v",
			inWindow.OverallScore, small.OverallScore)
	}
}
