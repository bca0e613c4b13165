package chunker

import (
	"context"

	"github.com/aerokb/rag-backend/internal/knowledge/types"
)

// Chunker 文本分块接口
type Chunker interface {
	// Chunk 将文本分块。空文本返回空列表，不报错。
	Chunk(ctx context.Context, text string) ([]*types.TextChunk, error)

	// ChunkSize 返回目标分块大小
	ChunkSize() int

	// ChunkOverlap 返回分块重叠大小
	ChunkOverlap() int
}
