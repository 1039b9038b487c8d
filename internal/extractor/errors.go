package extractor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrReadFailed      = errors.New("读取文件失败")
	ErrTooLarge        = errors.New("文件超过大小上限")
	ErrPDFFailed       = errors.New("提取PDF文本失败")
	ErrDOCXFailed      = errors.New("提取DOCX文本失败")
	ErrInvalidEncoding = errors.New("文本不是合法的UTF-8")
	ErrPanic           = errors.New("提取过程发生panic")
)

// ExtractError 包含详细错误信息的提取错误
type ExtractError struct {
	Source  string // 文件名或路径
	Op      string
	BaseErr error
	Detail  string
}

func (e *ExtractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 来源:%s): %s", e.BaseErr, e.Op, e.Source, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 来源:%s)", e.BaseErr, e.Op, e.Source)
}

func (e *ExtractError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// Code 诊断中使用的短错误码
func (e *ExtractError) Code() string {
	switch {
	case errors.Is(e.BaseErr, ErrTooLarge):
		return "too_large"
	case errors.Is(e.BaseErr, ErrPDFFailed):
		return "pdf_failed"
	case errors.Is(e.BaseErr, ErrDOCXFailed):
		return "docx_failed"
	case errors.Is(e.BaseErr, ErrInvalidEncoding):
		return "invalid_encoding"
	case errors.Is(e.BaseErr, ErrPanic):
		return "panic"
	default:
		return "read_failed"
	}
}

func newExtractError(source, op string, base error, detail string) error {
	return &ExtractError{Source: source, Op: op, BaseErr: base, Detail: detail}
}
