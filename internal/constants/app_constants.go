package constants

import "time"

const (
	// ParserVersion 写入分析记录，规则变化时递增，旧缓存随之失效
	ParserVersion = "1.0"

	// DefaultResultTTL 解析结果缓存的默认有效期
	DefaultResultTTL = 24 * time.Hour

	// EmptyJDMarker 没有职位描述时参与缓存键计算的占位值
	EmptyJDMarker = "-"
)

// 分析记录状态
const (
	StatusPendingParse = "PENDING_PARSE"
	StatusAnalyzed     = "ANALYZED"
	StatusFailed       = "FAILED"
)

// 发件箱事件类型
const (
	EventResumeUploaded = "resume.uploaded"
	EventResumeAnalyzed = "resume.analyzed"
)
