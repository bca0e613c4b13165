package types

import (
	"path/filepath"
	"strings"
)

// DocumentInfo 待分块文档的元数据（由文档解析组件提供）
type DocumentInfo struct {
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type,omitempty"` // 显式声明的文档类型
	Title        string `json:"title,omitempty"`
	Subject      string `json:"subject,omitempty"`
}

// FileExtension 返回小写的文件扩展名（含点）
func (d DocumentInfo) FileExtension() string {
	return strings.ToLower(filepath.Ext(d.FileName))
}

// BaseName 返回不含扩展名的文件名，为空时返回 "doc"
func (d DocumentInfo) BaseName() string {
	name := strings.TrimSuffix(filepath.Base(d.FileName), filepath.Ext(d.FileName))
	if name == "" || name == "." {
		return "doc"
	}
	return name
}
