package quality

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// 评分调整常量。这些是针对航空文档手工调优的参数，
// 调整前应先用测试集验证效果。
const (
	aviationBaseScore  = 0.5
	semanticBaseScore  = 0.6
	densityBaseScore   = 0.5
	structureBaseScore = 0.4

	termBonusPerHit    = 0.1 // 每个领域术语加分
	termBonusCap       = 0.3 // 术语加分上限
	termTruncatedPenal = 0.3 // 术语被分块边界截断
	safetyBonus        = 0.2 // 包含安全关键词
	safetyIncomplete   = 0.4 // 安全信息不完整
	stepBonus          = 0.2 // 包含操作步骤标记
	stepIncomplete     = 0.3 // 步骤编号断档或以步骤标记结尾
	paramBonus         = 0.2 // 包含带单位的技术参数

	// 过短内容直接定分，跳过维度计算
	tinyChunkRunes = 10
	tinyChunkScore = 0.1
	// 最终分数下限
	scoreFloor = 0.1
)

// aviationTerms 航空术语库
var aviationTerms = []string{
	"发动机", "液压系统", "燃油系统", "电气系统", "起落架",
	"飞行控制", "导航系统", "通信系统", "客舱", "货舱",
	"engine", "hydraulic", "fuel system", "electrical", "landing gear",
	"flight control", "navigation", "communication", "cabin", "cargo",
}

// safetyKeywords 安全关键词
var safetyKeywords = []string{
	"警告", "注意", "危险", "禁止", "必须",
	"warning", "caution", "danger", "prohibited", "must",
}

// safetyOpeners 安全声明的起始标记
var safetyOpeners = []string{
	"警告:", "警告：", "注意:", "注意：", "危险:", "危险：",
	"WARNING:", "CAUTION:", "DANGER:",
}

// obligationWords 义务/禁止用语，完整的安全声明必须包含其一
var obligationWords = []string{
	"必须", "禁止", "应该", "不得",
	"must", "should", "do not", "never",
}

// infoKeywords 信息关键词（信息密度维度）
var infoKeywords = []string{
	"参数", "数值", "规格", "标准", "要求", "步骤", "方法", "程序",
	"检查", "测试", "维修", "更换", "安装", "调整", "校准",
	"parameter", "value", "specification", "standard", "requirement",
	"step", "method", "procedure", "check", "test", "maintenance",
}

// topicKeywords 主题关键词桶（语义完整性维度的主题集中度检查）
var topicKeywords = map[string][]string{
	"maintenance": {"维修", "检查", "更换", "安装"},
	"operation":   {"操作", "启动", "关闭", "运行"},
	"safety":      {"安全", "警告", "注意", "危险"},
	"technical":   {"参数", "规格", "标准", "技术"},
}

var (
	stepMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`步骤\s*\d+`),
		regexp.MustCompile(`第\s*\d+\s*步`),
		regexp.MustCompile(`(?i)step\s+\d+`),
		regexp.MustCompile(`\d+\.\s`),
		regexp.MustCompile(`\(\d+\)`),
		regexp.MustCompile(`[a-z]\)`),
	}
	stepNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`步骤\s*(\d+)`),
		regexp.MustCompile(`第\s*(\d+)\s*步`),
		regexp.MustCompile(`(?i)step\s+(\d+)`),
		regexp.MustCompile(`(?m)^(\d+)\.`),
	}
	paramPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s*(rpm|psi|°c|°f|kg|lb|ft|m|v|a|bar|mpa)`),
		regexp.MustCompile(`压力[:：]\s*\d+`),
		regexp.MustCompile(`温度[:：]\s*\d+`),
		regexp.MustCompile(`转速[:：]\s*\d+`),
	}
	nonProsePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*[-•]\s`),
		regexp.MustCompile(`(?m)^\s*\d+\.\s`),
		regexp.MustCompile(`(?m)^\s*[a-zA-Z]\)\s`),
		regexp.MustCompile(`(?m):\s*$`),
		regexp.MustCompile(`(?im)\d+\s*(rpm|psi|°c|°f|kg|lb|ft|m|v|a)\s*$`),
	}
	headingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^第\s*[一二三四五六七八九十\d]+\s*[章节条]`),
		regexp.MustCompile(`(?im)^Chapter\s+\d+`),
		regexp.MustCompile(`(?im)^Section\s+\d+`),
		regexp.MustCompile(`(?m)^#{1,6}\s`),
		regexp.MustCompile(`(?m)^\d+\.\d+`),
		regexp.MustCompile(`(?m)^[A-Z][A-Z\s]+:$`),
	}
	listItemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*[-•]\s`),
		regexp.MustCompile(`(?m)^\s*\d+\.\s`),
		regexp.MustCompile(`(?m)^\s*[a-zA-Z]\)\s`),
		regexp.MustCompile(`(?m)^\s*\([a-zA-Z0-9]+\)\s`),
	}
	specialStructurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\|.*\|`),
		regexp.MustCompile("```"),
		regexp.MustCompile(`(?m)^\s*\w+[:：]\s*\w+`),
		regexp.MustCompile(`\d+\s*[x×]\s*\d+`),
	}
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	unitPattern     = regexp.MustCompile(`(?i)\d+\s*(rpm|psi|°c|°f|kg|lb|ft|m|v|a|bar|mpa)`)
	sentenceEnders  = regexp.MustCompile(`[.。!！?？]`)
	terminalEndings = []string{".", "。", "!", "！", "?", "？", "：", ":", "完成", "complete", "结束", "end"}
	procedureEnders = []string{".", "。", "完成", "complete", "done"}
)

// openConstructPatterns 未闭合结构：有开启标记但没有对应的结束标记
var openConstructPatterns = []struct {
	open, close *regexp.Regexp
}{
	{regexp.MustCompile(`(?m)^\s*步骤\s*\d+`), regexp.MustCompile(`(?i)完成|结束|end|complete`)},
	{regexp.MustCompile(`(?m)^\s*注意[:：]`), regexp.MustCompile(`[.。!！]\s*$`)},
	{regexp.MustCompile(`(?m)^\s*警告[:：]`), regexp.MustCompile(`[.。!！]\s*$`)},
}

// AviationAssessor 航空领域质量评估策略。
//
// 五个维度：航空特定性、语义完整性、信息密度、结构质量、大小适当性。
// 各维度从固定基线出发按规则加减分并限制在 [0,1]，
// 按文档类型加权汇总后再减去内容惩罚分。
type AviationAssessor struct {
	size SizeConfig
}

// NewAviationAssessor 创建航空质量评估策略
func NewAviationAssessor(size SizeConfig) *AviationAssessor {
	if size.TargetChunkSize <= 0 {
		size = DefaultSizeConfig()
	}
	return &AviationAssessor{size: size}
}

// Name 返回策略名称
func (a *AviationAssessor) Name() string { return "aviation" }

// Dimensions 返回支持的评估维度
func (a *AviationAssessor) Dimensions() []string {
	return []string{
		DimensionAviationSpecific,
		DimensionSemanticCompleteness,
		DimensionInformationDensity,
		DimensionStructureQuality,
		DimensionSizeAppropriateness,
	}
}

// Assess 评估分块质量。size 零值时使用策略默认大小配置。
func (a *AviationAssessor) Assess(chunk *types.TextChunk, size SizeConfig) Metrics {
	start := time.Now()

	if size.TargetChunkSize <= 0 {
		size = a.size
	}

	if chunk == nil || strings.TrimSpace(chunk.Content) == "" {
		return Metrics{OverallScore: 0.0, Confidence: 1.0, StrategyName: a.Name()}
	}
	if chunk.CharacterCount < tinyChunkRunes {
		return Metrics{
			OverallScore:    tinyChunkScore,
			DimensionScores: map[string]float64{DimensionSizeAppropriateness: tinyChunkScore},
			Confidence:      1.0,
			StrategyName:    a.Name(),
			ProcessingTime:  time.Since(start),
		}
	}

	weights := WeightsFor(chunk.Metadata.ChunkType)
	dims := map[string]float64{
		DimensionAviationSpecific:     a.aviationSpecificScore(chunk.Content),
		DimensionSemanticCompleteness: a.semanticCompletenessScore(chunk.Content),
		DimensionInformationDensity:   a.informationDensityScore(chunk.Content),
		DimensionStructureQuality:     a.structureQualityScore(chunk.Content),
		DimensionSizeAppropriateness:  sizeAppropriatenessScore(chunk.CharacterCount, size),
	}

	total := dims[DimensionAviationSpecific]*weights.AviationSpecific +
		dims[DimensionSemanticCompleteness]*weights.SemanticCompleteness +
		dims[DimensionInformationDensity]*weights.InformationDensity +
		dims[DimensionStructureQuality]*weights.StructureQuality +
		dims[DimensionSizeAppropriateness]*weights.SizeAppropriateness

	penalty := a.contentPenalty(chunk)
	final := round3(clamp01(maxFloat(scoreFloor, total-penalty)))

	return Metrics{
		OverallScore:    final,
		DimensionScores: dims,
		Confidence:      0.9,
		StrategyName:    a.Name(),
		ProcessingTime:  time.Since(start),
	}
}

// contentPenalty 内容惩罚：过短、空白比例过高。
// 同组内只取最大的一项。
func (a *AviationAssessor) contentPenalty(chunk *types.TextChunk) float64 {
	penalty := 0.0

	if chunk.CharacterCount < 30 {
		penalty += 0.4
	} else if chunk.CharacterCount < 50 {
		penalty += 0.2
	}

	ratio := nonSpaceRatio(chunk.Content)
	if ratio < 0.3 {
		penalty += 0.5
	} else if ratio < 0.5 {
		penalty += 0.3
	} else if ratio < 0.6 {
		penalty += 0.1
	}
	return penalty
}

// aviationSpecificScore 航空特定性：术语密度、术语截断、
// 安全信息完整性、步骤连贯性、技术参数。
func (a *AviationAssessor) aviationSpecificScore(content string) float64 {
	score := aviationBaseScore
	lower := strings.ToLower(content)

	termCount := 0
	for _, term := range aviationTerms {
		if strings.Contains(lower, term) {
			termCount++
		}
	}
	if termCount > 0 {
		score += minFloat(termBonusCap, float64(termCount)*termBonusPerHit)
	}

	// 术语被分块边界截断：内容以术语掐头或去尾的形式开始/结束
	for _, term := range aviationTerms {
		r := []rune(term)
		if len(r) < 2 {
			continue
		}
		if strings.HasPrefix(lower, string(r[1:])) || strings.HasSuffix(lower, string(r[:len(r)-1])) {
			score -= termTruncatedPenal
			break
		}
	}

	if containsAny(lower, safetyKeywords) {
		score += safetyBonus
		if !isSafetyInfoComplete(content) {
			score -= safetyIncomplete
		}
	}

	if matchesAny(lower, stepMarkerPatterns) {
		score += stepBonus
		if hasIncompleteProcedures(content) {
			score -= stepIncomplete
		}
	}

	if matchesAny(lower, paramPatterns) {
		score += paramBonus
	}

	return clamp01(score)
}

// isSafetyInfoComplete 安全声明完整性：触发词之后至少还有 20 个字符、
// 以句末标点结束、且包含明确的义务或禁止用语。
func isSafetyInfoComplete(content string) bool {
	for _, opener := range safetyOpeners {
		idx := strings.Index(content, opener)
		if idx < 0 {
			continue
		}
		after := strings.TrimSpace(content[idx+len(opener):])
		if utf8.RuneCountInString(after) < 20 {
			return false
		}
		if !endsWithAny(after, ".", "。", "!", "！") {
			return false
		}
		if !containsAny(strings.ToLower(after), obligationWords) {
			return false
		}
	}
	return true
}

// hasIncompleteProcedures 步骤编号必须构成无断档的连续递增序列，
// 且内容不能在步骤标记后直接结束。
func hasIncompleteProcedures(content string) bool {
	var numbers []int
	for _, re := range stepNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if n := parseInt(m[1]); n > 0 {
				numbers = append(numbers, n)
			}
		}
	}
	if len(numbers) == 0 {
		return false
	}

	sort.Ints(numbers)
	for i := 0; i+1 < len(numbers); i++ {
		if numbers[i+1]-numbers[i] > 1 {
			return true
		}
	}

	return !endsWithAny(strings.TrimSpace(content), procedureEnders...)
}

// semanticCompletenessScore 语义完整性：结尾完整性、完整句子、主题集中度。
// 列表项、键值对、行尾单位数值等非散文形态豁免句末标点要求。
func (a *AviationAssessor) semanticCompletenessScore(content string) float64 {
	score := semanticBaseScore
	content = strings.TrimSpace(content)

	exempt := matchesAny(content, nonProsePatterns)
	if endsWithAny(content, terminalEndings...) || exempt {
		score += 0.3
	} else {
		score -= 0.2
	}

	hasSentence := false
	for _, part := range sentenceEnders.Split(content, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(part)) > 3 {
			hasSentence = true
			break
		}
	}
	if hasSentence {
		score += 0.2
	} else if !exempt {
		score -= 0.3
	}

	// 较长内容检查主题集中度
	if utf8.RuneCountInString(content) > 50 {
		lower := strings.ToLower(content)
		buckets := 0
		for _, keywords := range topicKeywords {
			if containsAny(lower, keywords) {
				buckets++
			}
		}
		if buckets > 2 {
			score -= 0.1 // 主题漂移
		} else if buckets == 1 {
			score += 0.1 // 主题集中
		}
	}

	return clamp01(score)
}

// informationDensityScore 信息密度：有效字符比例、信息关键词密度、
// 数值与单位密度、词汇重复度。
func (a *AviationAssessor) informationDensityScore(content string) float64 {
	total := utf8.RuneCountInString(content)
	if total == 0 {
		return 0.0
	}
	score := densityBaseScore

	ratio := nonSpaceRatio(content)
	switch {
	case ratio >= 0.8:
		score += 0.3
	case ratio >= 0.7:
		score += 0.2
	case ratio >= 0.6:
		score += 0.1
	case ratio < 0.5:
		score -= 0.4
	default: // 0.5 <= ratio < 0.6
		score -= 0.2
	}

	lower := strings.ToLower(content)
	words := strings.Fields(content)
	wordCount := len(words)
	if wordCount == 0 {
		wordCount = 1
	}

	keywordCount := 0
	for _, kw := range infoKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}
	keywordDensity := float64(keywordCount) / float64(wordCount)
	switch {
	case keywordDensity >= 0.2:
		score += 0.3
	case keywordDensity >= 0.1:
		score += 0.2
	case keywordDensity >= 0.05:
		score += 0.1
	default:
		score -= 0.2
	}

	numbers := numberPattern.FindAllString(content, -1)
	if len(numbers) > 0 {
		numberDensity := float64(len(numbers)) / float64(wordCount)
		if numberDensity > 0.2 {
			score += 0.2
		} else if numberDensity > 0.1 {
			score += 0.1
		}
	}
	if unitPattern.MatchString(content) {
		score += 0.1
	}

	if len(words) > 5 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		repetition := float64(len(words)) / float64(len(unique))
		if repetition > 3 {
			score -= 0.3 // 内容高度重复
		} else if repetition < 1.5 {
			score += 0.1 // 词汇丰富
		}
	}

	return clamp01(score)
}

// structureQualityScore 结构质量：标题、列表、段落、表格等结构标记，
// 以及未闭合结构的扣分。
func (a *AviationAssessor) structureQualityScore(content string) float64 {
	score := structureBaseScore

	if matchesAny(content, headingPatterns) {
		score += 0.4
	}

	listItems := 0
	dominant := 0
	for _, re := range listItemPatterns {
		n := len(re.FindAllString(content, -1))
		listItems += n
		if n > dominant {
			dominant = n
		}
	}
	if listItems > 1 {
		score += 0.3
		if dominant == listItems {
			score += 0.1 // 列表标记风格一致
		}
	} else if listItems == 1 {
		score += 0.1
	}

	paragraphs := 0
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	if paragraphs > 1 {
		score += 0.2
	}

	for _, re := range specialStructurePatterns {
		if re.MatchString(content) {
			score += 0.2
			break
		}
	}

	for _, pair := range openConstructPatterns {
		if pair.open.MatchString(content) && !pair.close.MatchString(content) {
			score -= 0.3
			break
		}
	}

	return clamp01(score)
}

// sizeAppropriatenessScore 大小适当性：目标区间 [0.8x, 1.2x] 内满分，
// 区间外按偏离程度线性衰减。区间以本次评估生效的大小配置为准。
func sizeAppropriatenessScore(charCount int, size SizeConfig) float64 {
	c := float64(charCount)
	optMin := float64(size.TargetChunkSize) * 0.8
	optMax := float64(size.TargetChunkSize) * 1.2

	if c >= optMin && c <= optMax {
		return 1.0
	}

	if c < optMin {
		if size.MinChunkSize > 0 && charCount < size.MinChunkSize {
			return clamp01(c / float64(size.MinChunkSize) * 0.3)
		}
		return clamp01(0.3 + c/optMin*0.4)
	}

	if size.MaxChunkSize > 0 && charCount > size.MaxChunkSize {
		return clamp01(float64(size.MaxChunkSize) / c * 0.5)
	}
	return clamp01(0.5 + optMax/c*0.5)
}

// nonSpaceRatio 非空白字符占比
func nonSpaceRatio(content string) float64 {
	total, nonSpace := 0, 0
	for _, r := range content {
		total++
		if !unicode.IsSpace(r) {
			nonSpace++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(nonSpace) / float64(total)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func endsWithAny(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func parseInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
