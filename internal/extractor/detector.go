package extractor

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// 支持的 MIME 类型
const (
	MIMEPDF   = "application/pdf"
	MIMEDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDOC   = "application/msword"
	MIMEText  = "text/plain"
	MIMEOctet = "application/octet-stream"
)

// Detector 判断文件的 MIME 类型，可替换以便测试
type Detector interface {
	Detect(head []byte, filename string) string
}

// DetectorFunc 函数适配器
type DetectorFunc func(head []byte, filename string) string

// Detect 实现 Detector
func (f DetectorFunc) Detect(head []byte, filename string) string { return f(head, filename) }

var extensionTable = map[string]string{
	".pdf":      MIMEPDF,
	".docx":     MIMEDOCX,
	".doc":      MIMEDOC,
	".txt":      MIMEText,
	".text":     MIMEText,
	".md":       MIMEText,
	".markdown": MIMEText,
}

// ExtensionDetector 仅根据扩展名判断类型
type ExtensionDetector struct{}

// Detect 实现 Detector
func (ExtensionDetector) Detect(_ []byte, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return MIMEOctet
	}
	if m, ok := extensionTable[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if mediaType, _, err := mime.ParseMediaType(m); err == nil {
			return mediaType
		}
		return m
	}
	return MIMEOctet
}

// FiletypeDetector 先根据文件头做内容嗅探，无法判断时回退到扩展名
type FiletypeDetector struct {
	Fallback Detector
}

// NewFiletypeDetector 创建默认检测器
func NewFiletypeDetector() *FiletypeDetector {
	return &FiletypeDetector{Fallback: ExtensionDetector{}}
}

// Detect 实现 Detector
func (d *FiletypeDetector) Detect(head []byte, filename string) string {
	if len(head) > 0 {
		kind, err := filetype.Match(head)
		// 普通 zip 可能是 docx，交给扩展名判断
		if err == nil && kind != filetype.Unknown && kind.MIME.Value != "application/zip" {
			return kind.MIME.Value
		}
	}
	if d.Fallback == nil {
		return MIMEOctet
	}
	return d.Fallback.Detect(head, filename)
}

// sniffLen filetype 需要的文件头长度
const sniffLen = 8192

func head(data []byte) []byte {
	if len(data) > sniffLen {
		return data[:sniffLen]
	}
	return data
}
