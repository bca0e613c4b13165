package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ChunkType 分块类型（封闭枚举，未知值回退到 ChunkTypeParagraph）
type ChunkType string

const (
	ChunkTypeParagraph          ChunkType = "paragraph"
	ChunkTypeSection            ChunkType = "section"
	ChunkTypeChapter            ChunkType = "chapter"
	ChunkTypeList               ChunkType = "list"
	ChunkTypeTable              ChunkType = "table"
	ChunkTypeCode               ChunkType = "code"
	ChunkTypeMaintenanceManual  ChunkType = "maintenance_manual"
	ChunkTypeRegulation         ChunkType = "regulation"
	ChunkTypeTechnicalStandard  ChunkType = "technical_standard"
	ChunkTypeTrainingMaterial   ChunkType = "training_material"
	ChunkTypeOperationProcedure ChunkType = "operation_procedure"
)

// knownChunkTypes 合法的分块类型集合
var knownChunkTypes = map[ChunkType]struct{}{
	ChunkTypeParagraph:          {},
	ChunkTypeSection:            {},
	ChunkTypeChapter:            {},
	ChunkTypeList:               {},
	ChunkTypeTable:              {},
	ChunkTypeCode:               {},
	ChunkTypeMaintenanceManual:  {},
	ChunkTypeRegulation:         {},
	ChunkTypeTechnicalStandard:  {},
	ChunkTypeTrainingMaterial:   {},
	ChunkTypeOperationProcedure: {},
}

// ParseChunkType 解析分块类型，未知值返回 ChunkTypeParagraph
func ParseChunkType(s string) ChunkType {
	ct := ChunkType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownChunkTypes[ct]; ok {
		return ct
	}
	return ChunkTypeParagraph
}

// Valid 判断是否为合法的分块类型
func (c ChunkType) Valid() bool {
	_, ok := knownChunkTypes[c]
	return ok
}

// ChunkMetadata 分块元数据
type ChunkMetadata struct {
	ChunkID             string    `json:"chunk_id"`
	ChunkType           ChunkType `json:"chunk_type"`
	SourceDocument      string    `json:"source_document"`
	PageNumber          *int      `json:"page_number,omitempty"`
	SectionTitle        string    `json:"section_title,omitempty"`
	StartPosition       *int      `json:"start_position,omitempty"`
	EndPosition         *int      `json:"end_position,omitempty"`
	ParentChunkID       string    `json:"parent_chunk_id,omitempty"`
	ChildChunkIDs       []string  `json:"child_chunk_ids,omitempty"`
	ConfidenceScore     float64   `json:"confidence_score"`
	ProcessingTimestamp time.Time `json:"processing_timestamp,omitempty"`
}

// TextChunk 文本分块
//
// CharacterCount 始终等于 Content 的字符数（rune 数，不是字节数）。
// OverlapContent 是上一个分块尾部的上下文，不计入 CharacterCount。
// QualityScore 在评分前为 0。
type TextChunk struct {
	Content        string        `json:"content"`
	Metadata       ChunkMetadata `json:"metadata"`
	WordCount      int           `json:"word_count"`
	CharacterCount int           `json:"character_count"`
	OverlapContent string        `json:"overlap_content,omitempty"`
	QualityScore   float64       `json:"quality_score"`
}

// NewTextChunk 创建分块并计算统计信息
func NewTextChunk(content string, metadata ChunkMetadata) *TextChunk {
	if metadata.ConfidenceScore == 0 {
		metadata.ConfidenceScore = 1.0
	}
	return &TextChunk{
		Content:        content,
		Metadata:       metadata,
		WordCount:      CountWords(content),
		CharacterCount: utf8.RuneCountInString(content),
	}
}

// Recount 在内容变更后重新计算统计信息
func (c *TextChunk) Recount() {
	c.WordCount = CountWords(c.Content)
	c.CharacterCount = utf8.RuneCountInString(c.Content)
}

// CountWords 按空白分割统计词数（连续中文文本视为一个词）
func CountWords(s string) int {
	return len(strings.Fields(s))
}
