package types

import "fmt"

// Stage 流水线阶段
type Stage string

const (
	StageExtract Stage = "extract"
	StageSegment Stage = "segment"
	StageFields  Stage = "fields"
	StageNLP     Stage = "nlp"
	StageScore   Stage = "score"
)

// Diagnostic 某一步降级处理的结构化记录
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s/%s] %s", d.Stage, d.Code, d.Message)
}

// Diagnostics 一次调用中收集的诊断信息
type Diagnostics []Diagnostic

// Add 追加一条诊断，ds 为 nil 时忽略
func (ds *Diagnostics) Add(stage Stage, code, format string, args ...interface{}) {
	if ds == nil {
		return
	}
	*ds = append(*ds, Diagnostic{
		Stage:   stage,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// Has 判断是否存在指定阶段和代码的诊断，code 为空时只比较阶段
func (ds Diagnostics) Has(stage Stage, code string) bool {
	for _, d := range ds {
		if d.Stage == stage && (code == "" || d.Code == code) {
			return true
		}
	}
	return false
}
