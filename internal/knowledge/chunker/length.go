package chunker

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/aerokb/rag-backend/internal/pkg/errors"
)

// 长度计量单位
const (
	LengthUnitChar  = "char"  // 按字符（rune）计数，默认
	LengthUnitToken = "token" // 按 token 计数（tiktoken）
)

// DefaultTokenEncoding 默认 token 编码（OpenAI 系列模型）
const DefaultTokenEncoding = "cl100k_base"

// LengthFunc 计算文本在配置单位下的长度
type LengthFunc func(s string) int

// RuneLength 按字符数计算长度（非字节数）
func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// resolveLength 根据配置的单位解析长度函数。
// token 单位时返回 tiktoken 编码器供强制分割和重叠计算复用。
func resolveLength(unit, encoding string) (LengthFunc, *tiktoken.Tiktoken, error) {
	switch unit {
	case "", LengthUnitChar:
		return RuneLength, nil, nil
	case LengthUnitToken:
		if encoding == "" {
			encoding = DefaultTokenEncoding
		}
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, nil, errors.Wrapf(err, errors.ErrKBInvalidLengthUnit, "encoding %q", encoding)
		}
		return func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}, enc, nil
	default:
		return nil, nil, errors.Newf(errors.ErrKBInvalidLengthUnit, "unit %q", unit)
	}
}
