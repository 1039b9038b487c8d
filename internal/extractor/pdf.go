package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// PDFBackend 按页提取 PDF 文本，返回值下标即页码减一，失败的页为空字符串
type PDFBackend interface {
	Name() string
	ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error)
}

// FormatPages 拼接各页文本，每页前加 "--- Page N ---"，空页跳过但保留页码
func FormatPages(pages []string) string {
	var sb strings.Builder
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s\n", i+1, text)
	}
	return strings.TrimSpace(sb.String())
}

// LedongthucPDF 基于 ledongthuc/pdf 的逐页提取
type LedongthucPDF struct {
	logger zerolog.Logger
}

// NewLedongthucPDF 创建 ledongthuc 后端
func NewLedongthucPDF(logger zerolog.Logger) *LedongthucPDF {
	return &LedongthucPDF{logger: logger}
}

// Name 后端名称
func (p *LedongthucPDF) Name() string { return "ledongthuc" }

// ExtractPages 实现 PDFBackend
func (p *LedongthucPDF) ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error) {
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开PDF失败: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		pages[i-1] = p.extractPage(reader, i, uri)
	}
	return pages, nil
}

// extractPage 单页失败（包括 panic）只跳过该页
func (p *LedongthucPDF) extractPage(reader *lpdf.Reader, num int, uri string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn().Str("uri", uri).Int("page", num).Interface("panic", r).Msg("PDF页面解析panic，已跳过")
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		p.logger.Warn().Err(err).Str("uri", uri).Int("page", num).Msg("PDF页面提取失败，已跳过")
		return ""
	}
	return content
}

// EinoPDF 基于 eino-ext PDF 解析器，ToPages 模式下每个文档对应一页
type EinoPDF struct {
	parser *pdf.PDFParser
	logger zerolog.Logger
}

// NewEinoPDF 初始化 Eino PDF 后端
func NewEinoPDF(ctx context.Context, logger zerolog.Logger) (*EinoPDF, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}
	return &EinoPDF{parser: p, logger: logger}, nil
}

// Name 后端名称
func (e *EinoPDF) Name() string { return "eino" }

// ExtractPages 实现 PDFBackend
func (e *EinoPDF) ExtractPages(ctx context.Context, data []byte, uri string) ([]string, error) {
	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
	)
	if err != nil {
		return nil, fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
	}

	pages := make([]string, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		pages[i] = doc.Content
	}
	e.logger.Debug().Str("uri", uri).Int("pages", len(pages)).Msg("Eino PDF解析完成")
	return pages, nil
}
