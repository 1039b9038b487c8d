package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(opts ...Option) *Extractor {
	return New(append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
}

// buildDOCX 在内存中构造一个最小可用的 docx 压缩包
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, name := range []string{"[Content_Types].xml", "word/_rels/document.xml.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildPDF 生成一个每页一行文本的简单 PDF，xref 偏移量按实际写入位置计算
func buildPDF(pageTexts ...string) []byte {
	var objs []string
	n := len(pageTexts)
	// 1: catalog, 2: pages, 3: font, 之后每页两个对象（page, content）
	kids := make([]string, n)
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

type stubPDF struct {
	pages []string
	err   error
	panic bool
}

func (s *stubPDF) Name() string { return "stub" }

func (s *stubPDF) ExtractPages(context.Context, []byte, string) ([]string, error) {
	if s.panic {
		panic("boom")
	}
	return s.pages, s.err
}

func TestFormatPages(t *testing.T) {
	got := FormatPages([]string{"Jane Doe", "", "   ", "Skills"})
	assert.Equal(t, "--- Page 1 ---\nJane Doe\n\n--- Page 4 ---\nSkills", got)
	assert.Equal(t, "", FormatPages(nil))
}

func TestExtractBytes_PlainText(t *testing.T) {
	e := newTestExtractor()
	doc, err := e.ExtractBytes(context.Background(), []byte("\xef\xbb\xbfJane Doe\nEngineer"), "cv.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer", doc.Text)
	assert.Equal(t, MIMEText, doc.MIMEType)
	assert.Equal(t, 20, doc.ByteLength)
}

func TestExtractBytes_EmptyInputForEveryType(t *testing.T) {
	e := newTestExtractor()
	for _, name := range []string{"a.pdf", "a.docx", "a.txt", "noext"} {
		doc, err := e.ExtractBytes(context.Background(), nil, name, "")
		require.NoError(t, err, name)
		assert.Equal(t, "", doc.Text, name)
	}
}

func TestExtractBytes_InvalidUTF8(t *testing.T) {
	e := newTestExtractor()
	doc, err := e.ExtractBytes(context.Background(), []byte{0xff, 0xfe, 0xfd}, "cv.txt", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Equal(t, "", doc.Text)

	var xe *ExtractError
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "invalid_encoding", xe.Code())
}

func TestExtractBytes_TooLarge(t *testing.T) {
	e := newTestExtractor(WithMaxBytes(4))
	_, err := e.ExtractBytes(context.Background(), []byte("12345"), "cv.txt", "")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = e.ExtractReader(context.Background(), strings.NewReader("123456789"), "cv.txt", "")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractBytes_DOCX(t *testing.T) {
	data := buildDOCX(t, "Jane Doe", "  ", "Software Engineer at Acme", "")
	e := newTestExtractor()

	doc, err := e.ExtractBytes(context.Background(), data, "cv.docx", "")
	require.NoError(t, err)
	assert.Equal(t, MIMEDOCX, doc.MIMEType)
	assert.Equal(t, "Jane Doe\nSoftware Engineer at Acme", doc.Text)
}

func TestExtractBytes_CorruptDOCX(t *testing.T) {
	e := newTestExtractor()
	doc, err := e.ExtractBytes(context.Background(), []byte("not a zip"), "cv.docx", MIMEDOCX)
	assert.ErrorIs(t, err, ErrDOCXFailed)
	assert.Equal(t, "", doc.Text)
}

func TestExtractBytes_PDFWithStubBackend(t *testing.T) {
	e := newTestExtractor(WithPDFBackend(&stubPDF{pages: []string{"first", "", "third"}}))
	doc, err := e.ExtractBytes(context.Background(), []byte("%PDF-1.4 fake"), "cv.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, MIMEPDF, doc.MIMEType)
	assert.Equal(t, "--- Page 1 ---\nfirst\n\n--- Page 3 ---\nthird", doc.Text)
}

func TestExtractBytes_PDFBackendFailureAndPanic(t *testing.T) {
	failing := newTestExtractor(WithPDFBackend(&stubPDF{err: errors.New("corrupt xref")}))
	doc, err := failing.ExtractBytes(context.Background(), []byte("%PDF-1.4"), "cv.pdf", "")
	assert.ErrorIs(t, err, ErrPDFFailed)
	assert.Equal(t, "", doc.Text)

	panicking := newTestExtractor(WithPDFBackend(&stubPDF{panic: true}))
	doc, err = panicking.ExtractBytes(context.Background(), []byte("%PDF-1.4"), "cv.pdf", "")
	assert.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, "", doc.Text)
}

func TestLedongthucPDF_Pages(t *testing.T) {
	e := newTestExtractor()
	doc, err := e.ExtractBytes(context.Background(), buildPDF("Jane Doe", "Work Experience"), "cv.pdf", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Text, "--- Page 1 ---"))
	assert.Contains(t, doc.Text, "Jane Doe")
	assert.Contains(t, doc.Text, "--- Page 2 ---")
	assert.Contains(t, doc.Text, "Work Experience")
}

func TestLedongthucPDF_Garbage(t *testing.T) {
	e := newTestExtractor()
	_, err := e.ExtractBytes(context.Background(), []byte("%PDF-1.4\ngarbage"), "cv.pdf", "")
	assert.ErrorIs(t, err, ErrPDFFailed)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.md")
	require.NoError(t, os.WriteFile(path, []byte("# Jane Doe"), 0644))

	e := newTestExtractor()
	doc, err := e.ExtractFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe", doc.Text)

	_, err = e.ExtractFile(context.Background(), filepath.Join(dir, "missing.pdf"), "")
	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestBuild(t *testing.T) {
	e, err := Build(context.Background(), configFor("ledongthuc", 1024))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), e.MaxBytes())

	_, err = Build(context.Background(), configFor("tika", 0))
	require.Error(t, err)
}
