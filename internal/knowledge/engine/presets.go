package engine

import (
	"strings"

	"github.com/aerokb/rag-backend/internal/conf"
	"github.com/aerokb/rag-backend/internal/knowledge/chunker"
	"github.com/aerokb/rag-backend/internal/knowledge/quality"
	"github.com/aerokb/rag-backend/internal/knowledge/types"
	"github.com/aerokb/rag-backend/internal/pkg/errors"
)

// FallbackPreset 规则全部不命中时使用的兜底预设
const FallbackPreset = "generic"

// Preset 命名的分块预设：分隔符层级 + 大小/重叠参数 + 默认分块类型。
// 分块类型决定质量评分使用的权重向量。
type Preset struct {
	Name        string
	Description string
	Splitter    chunker.RecursiveConfig
	ChunkType   types.ChunkType // 该类文档的默认分块类型
	Quality     string          // 质量评估策略，空值用管理器默认
}

// sizeConfig 把预设的分割参数换算成质量评分用的大小配置，
// 上限缺省时与分块器一致按目标大小的两倍兜底
func (p Preset) sizeConfig() quality.SizeConfig {
	size := quality.SizeConfig{
		TargetChunkSize: p.Splitter.ChunkSize,
		MinChunkSize:    p.Splitter.MinChunkSize,
		MaxChunkSize:    p.Splitter.MaxChunkSize,
	}
	if size.MaxChunkSize <= 0 {
		size.MaxChunkSize = size.TargetChunkSize * 2
	}
	return size
}

// aviationSeparators 航空文档的扩展分隔符层级，
// 比默认层级多出法规条款标记（款、项）和编号列表标记
func aviationSeparators() []string {
	return []string{
		"\n\n",
		"\n第", "\n章", "\n节", "\n条", "\n款", "\n项",
		"\nChapter", "\nSection", "\nArticle",
		"\n\n•", "\n\n-", "\n\n*", "\n\n1.", "\n\n2.", "\n\n3.",
		"\n",
		"。", "！", "？", ".", "!", "?",
		"；", ";", "，", ",",
		" ", "\t",
		"、", "：", ":",
		"",
	}
}

// markdownSeparators Markdown 文档优先按标题层级分割
func markdownSeparators() []string {
	return []string{
		"\n# ", "\n## ", "\n### ", "\n#### ",
		"\n```\n",
		"\n\n", "\n",
		"。", "！", "？", ".", "!", "?",
		" ", "",
	}
}

func aviationSplitterConfig() chunker.RecursiveConfig {
	cfg := chunker.DefaultRecursiveConfig()
	cfg.ChunkSize = 1200
	cfg.ChunkOverlap = 150
	cfg.Separators = aviationSeparators()
	cfg.AddStartIndex = true
	return cfg
}

// BuiltinPresets 内置预设表
func BuiltinPresets() map[string]Preset {
	generic := chunker.DefaultRecursiveConfig()
	generic.Separators = chunker.DefaultSeparators()
	generic.AddStartIndex = true

	markdown := chunker.DefaultRecursiveConfig()
	markdown.Separators = markdownSeparators()
	markdown.AddStartIndex = true

	return map[string]Preset{
		"aviation_maintenance": {
			Name:        "aviation_maintenance",
			Description: "维修手册：任务、步骤、警告密集的文档",
			Splitter:    aviationSplitterConfig(),
			ChunkType:   types.ChunkTypeMaintenanceManual,
		},
		"aviation_regulation": {
			Name:        "aviation_regulation",
			Description: "规章制度：章节条款结构的法规文档",
			Splitter:    aviationSplitterConfig(),
			ChunkType:   types.ChunkTypeRegulation,
		},
		"aviation_standard": {
			Name:        "aviation_standard",
			Description: "技术标准：参数和规格密集的标准文档",
			Splitter:    aviationSplitterConfig(),
			ChunkType:   types.ChunkTypeTechnicalStandard,
		},
		"aviation_training": {
			Name:        "aviation_training",
			Description: "培训资料：教学讲解类文档",
			Splitter:    aviationSplitterConfig(),
			ChunkType:   types.ChunkTypeTrainingMaterial,
		},
		"markdown": {
			Name:        "markdown",
			Description: "Markdown 文档：按标题层级分割",
			Splitter:    markdown,
			ChunkType:   types.ChunkTypeParagraph,
		},
		FallbackPreset: {
			Name:        FallbackPreset,
			Description: "通用回退预设",
			Splitter:    generic,
			ChunkType:   types.ChunkTypeParagraph,
		},
	}
}

// PresetsFromConfig 在内置预设表上叠加配置文件的覆盖项。
// 配置里出现的未知预设名会作为新预设注册，类型默认 paragraph。
func PresetsFromConfig(cfg conf.ChunkingConfig) map[string]Preset {
	presets := BuiltinPresets()
	for name, pc := range cfg.Presets {
		p, ok := presets[name]
		if !ok {
			p = Preset{Name: name, ChunkType: types.ChunkTypeParagraph}
			p.Splitter = chunker.DefaultRecursiveConfig()
		}
		if pc.ChunkSize > 0 {
			p.Splitter.ChunkSize = pc.ChunkSize
		}
		if pc.ChunkOverlap != nil {
			p.Splitter.ChunkOverlap = *pc.ChunkOverlap
		}
		if pc.MinChunkSize != nil {
			p.Splitter.MinChunkSize = *pc.MinChunkSize
		}
		if pc.MaxChunkSize > 0 {
			p.Splitter.MaxChunkSize = pc.MaxChunkSize
		}
		if len(pc.Separators) > 0 {
			p.Splitter.Separators = pc.Separators
		}
		if pc.IsSeparatorRegex != nil {
			p.Splitter.IsSeparatorRegex = *pc.IsSeparatorRegex
		}
		if pc.KeepSeparator != nil {
			p.Splitter.KeepSeparator = *pc.KeepSeparator
		}
		if pc.AddStartIndex != nil {
			p.Splitter.AddStartIndex = *pc.AddStartIndex
		}
		if pc.StripWhitespace != nil {
			p.Splitter.StripWhitespace = *pc.StripWhitespace
		}
		if pc.LengthUnit != "" {
			p.Splitter.LengthUnit = pc.LengthUnit
		}
		if pc.TokenEncoding != "" {
			p.Splitter.TokenEncoding = pc.TokenEncoding
		}
		if cfg.QualityStrategy != "" {
			p.Quality = cfg.QualityStrategy
		}
		presets[name] = p
	}
	return presets
}

// selectionRule 预设选择规则：按顺序求值，第一条命中的规则生效。
// 保持为显式有序列表而不是动态注册表，选择顺序可审计、可测试。
type selectionRule struct {
	name   string
	match  func(doc types.DocumentInfo) bool
	preset string
}

// keywordFamilies 标题/主题关键词 -> 预设
var keywordFamilies = []struct {
	keywords []string
	preset   string
}{
	{[]string{"维修", "手册", "maintenance", "manual"}, "aviation_maintenance"},
	{[]string{"规章", "制度", "regulation", "policy"}, "aviation_regulation"},
	{[]string{"标准", "规范", "standard", "specification"}, "aviation_standard"},
	{[]string{"培训", "教学", "training", "education"}, "aviation_training"},
}

// docTypeToPreset 显式文档类型 -> 预设
var docTypeToPreset = map[string]string{
	"maintenance_manual": "aviation_maintenance",
	"regulation":         "aviation_regulation",
	"technical_standard": "aviation_standard",
	"training_material":  "aviation_training",
	"markdown":           "markdown",
}

// defaultRules 构建默认选择规则：
// 显式文档类型 > 标题/主题关键词 > 文件扩展名 > 兜底预设
func defaultRules() []selectionRule {
	rules := []selectionRule{
		{
			name: "explicit_document_type",
			match: func(doc types.DocumentInfo) bool {
				_, ok := docTypeToPreset[strings.ToLower(doc.DocumentType)]
				return ok
			},
			preset: "", // 预设名由 docTypeToPreset 决定，见 selectPreset
		},
	}

	for _, family := range keywordFamilies {
		family := family
		rules = append(rules, selectionRule{
			name: "keywords_" + family.preset,
			match: func(doc types.DocumentInfo) bool {
				haystack := strings.ToLower(doc.Title + " " + doc.Subject)
				for _, kw := range family.keywords {
					if strings.Contains(haystack, kw) {
						return true
					}
				}
				return false
			},
			preset: family.preset,
		})
	}

	rules = append(rules,
		selectionRule{
			name: "extension_markdown",
			match: func(doc types.DocumentInfo) bool {
				return doc.FileExtension() == ".md"
			},
			preset: "markdown",
		},
		selectionRule{
			name: "extension_plain",
			match: func(doc types.DocumentInfo) bool {
				switch doc.FileExtension() {
				case ".pdf", ".docx", ".doc", ".txt":
					return true
				}
				return false
			},
			preset: FallbackPreset,
		},
	)
	return rules
}

// selectPreset 按规则顺序选择预设名。任何元数据都能得到结果，
// 不命中时回退到兜底预设，永远不会报错。
func (e *Engine) selectPreset(doc types.DocumentInfo) string {
	for _, rule := range e.rules {
		if !rule.match(doc) {
			continue
		}
		name := rule.preset
		if rule.name == "explicit_document_type" {
			name = docTypeToPreset[strings.ToLower(doc.DocumentType)]
		}
		if _, ok := e.presets[name]; ok {
			return name
		}
	}
	return FallbackPreset
}

// ResolvePreset 按名称查找预设，未注册的名称返回 ConfigurationError
func (e *Engine) ResolvePreset(name string) (Preset, error) {
	p, ok := e.presets[name]
	if !ok {
		return Preset{}, errors.Newf(errors.ErrKBUnknownPreset, "preset %q is not registered", name)
	}
	return p, nil
}

// RegisterPreset 注册或覆盖预设
func (e *Engine) RegisterPreset(p Preset) {
	e.presets[p.Name] = p
}

// Presets 返回已注册的预设名称
func (e *Engine) Presets() []string {
	names := make([]string, 0, len(e.presets))
	for name := range e.presets {
		names = append(names, name)
	}
	return names
}
