// Package extractor 将上传的简历文件（PDF / DOCX / 纯文本）转换为 UTF-8 文本。
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"smarthire-ats/internal/config"
	"smarthire-ats/internal/logger"
	"smarthire-ats/internal/types"
)

// DefaultMaxBytes 默认的单文件大小上限
const DefaultMaxBytes int64 = 10 << 20

// Extractor 文本提取器，构建后只读，可并发使用
type Extractor struct {
	detector Detector
	pdf      PDFBackend
	maxBytes int64
	logger   zerolog.Logger
}

// Option 提取器的配置选项
type Option func(*Extractor)

// WithDetector 替换 MIME 检测器
func WithDetector(d Detector) Option {
	return func(e *Extractor) {
		if d != nil {
			e.detector = d
		}
	}
}

// WithPDFBackend 替换 PDF 后端
func WithPDFBackend(b PDFBackend) Option {
	return func(e *Extractor) {
		if b != nil {
			e.pdf = b
		}
	}
}

// WithMaxBytes 设置大小上限，<=0 时忽略
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithLogger 配置自定义日志记录器
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New 创建提取器，默认使用 filetype 嗅探和 ledongthuc PDF 后端
func New(opts ...Option) *Extractor {
	e := &Extractor{
		detector: NewFiletypeDetector(),
		maxBytes: DefaultMaxBytes,
		logger:   logger.Component("extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pdf == nil {
		e.pdf = NewLedongthucPDF(e.logger)
	}
	return e
}

// Build 根据配置构建提取器
func Build(ctx context.Context, cfg config.ExtractorConfig, opts ...Option) (*Extractor, error) {
	l := logger.Component("extractor")
	var backend PDFBackend
	switch cfg.PDFBackend {
	case "", "ledongthuc":
		backend = NewLedongthucPDF(l)
	case "eino":
		b, err := NewEinoPDF(ctx, l)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: 未知的PDF后端 %q", config.ErrInvalidConfig, cfg.PDFBackend)
	}
	l.Info().Str("pdf_backend", backend.Name()).Int64("max_bytes", cfg.MaxBytes).Msg("文本提取器初始化完成")

	base := []Option{WithLogger(l), WithPDFBackend(backend), WithMaxBytes(cfg.MaxBytes)}
	return New(append(base, opts...)...), nil
}

// MaxBytes 当前的大小上限
func (e *Extractor) MaxBytes() int64 { return e.maxBytes }

// ExtractFile 从文件路径提取文本，mimeType 为空时自动检测
func (e *Extractor) ExtractFile(ctx context.Context, path, mimeType string) (types.ParsedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.ParsedDocument{}, newExtractError(path, "stat", ErrReadFailed, err.Error())
	}
	if info.Size() > e.maxBytes {
		return types.ParsedDocument{ByteLength: int(info.Size())},
			newExtractError(path, "stat", ErrTooLarge, fmt.Sprintf("%d > %d", info.Size(), e.maxBytes))
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return types.ParsedDocument{}, newExtractError(path, "open", ErrReadFailed, err.Error())
	}
	defer f.Close()

	return e.ExtractReader(ctx, f, path, mimeType)
}

// ExtractReader 从 io.Reader 提取文本，最多读取 maxBytes 字节
func (e *Extractor) ExtractReader(ctx context.Context, r io.Reader, filename, mimeType string) (types.ParsedDocument, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return types.ParsedDocument{}, newExtractError(filename, "read", ErrReadFailed, err.Error())
	}
	return e.ExtractBytes(ctx, data, filename, mimeType)
}

// ExtractBytes 从内存数据提取文本。失败时返回的文档 Text 为空，错误为 *ExtractError。
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, filename, mimeType string) (doc types.ParsedDocument, err error) {
	doc.ByteLength = len(data)
	if int64(len(data)) > e.maxBytes {
		err = newExtractError(filename, "read", ErrTooLarge, fmt.Sprintf("%d > %d", len(data), e.maxBytes))
		e.logFailure(err, filename)
		return doc, err
	}

	if mimeType == "" || mimeType == MIMEOctet {
		mimeType = e.detector.Detect(head(data), filename)
	}
	doc.MIMEType = mimeType

	if len(data) == 0 {
		return doc, nil
	}

	defer func() {
		if r := recover(); r != nil {
			doc.Text = ""
			err = newExtractError(filename, "extract", ErrPanic, fmt.Sprint(r))
			e.logFailure(err, filename)
		}
	}()

	start := time.Now()
	text, err := e.extract(ctx, data, filename, mimeType)
	if err != nil {
		e.logFailure(err, filename)
		return doc, err
	}
	doc.Text = text

	e.logger.Debug().
		Str("file", filename).
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("文本提取完成")
	return doc, nil
}

func (e *Extractor) extract(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	switch mimeType {
	case MIMEPDF:
		pages, err := e.pdf.ExtractPages(ctx, data, filename)
		if err != nil && len(pages) == 0 {
			return "", newExtractError(filename, "pdf:"+e.pdf.Name(), ErrPDFFailed, err.Error())
		}
		return FormatPages(pages), nil
	case MIMEDOCX, MIMEDOC:
		text, err := ExtractDOCX(data)
		if err != nil {
			return "", newExtractError(filename, "docx", ErrDOCXFailed, err.Error())
		}
		return text, nil
	default:
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", newExtractError(filename, "text", ErrInvalidEncoding, "")
		}
		return string(data), nil
	}
}

func (e *Extractor) logFailure(err error, filename string) {
	var xe *ExtractError
	code := "read_failed"
	if errors.As(err, &xe) {
		code = xe.Code()
	}
	e.logger.Warn().Err(err).Str("file", filename).Str("code", code).Msg("文本提取失败，按空文本处理")
}

// IsSupported 判断 MIME 类型是否有专门的提取逻辑
func IsSupported(mimeType string) bool {
	switch mimeType {
	case MIMEPDF, MIMEDOCX, MIMEDOC:
		return true
	}
	return strings.HasPrefix(mimeType, "text/")
}
