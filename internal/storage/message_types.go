package storage

import (
	"time"

	"smarthire-ats/internal/types"
)

// ResumeUploadMessage 简历上传后投递给分析 worker 的消息
type ResumeUploadMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	OriginalFilename    string    `json:"original_filename"`
	OriginalFilePathOSS string    `json:"original_file_path_oss"` // MinIO 中的对象名
	RawFileMD5          string    `json:"raw_file_md5"`
	MIMEType            string    `json:"mime_type,omitempty"`
	TargetJobID         string    `json:"target_job_id,omitempty"`
	JobTitle            string    `json:"job_title,omitempty"`
	JobDescription      string    `json:"job_description,omitempty"`
}

// ResumeAnalyzedMessage 分析完成后发布的事件
type ResumeAnalyzedMessage struct {
	SubmissionUUID string    `json:"submission_uuid"`
	Status         string    `json:"status"`
	ATSScore       float64   `json:"ats_score"`
	JobFitScore    float64   `json:"job_fit_score"`
	MissingSkills  []string  `json:"missing_skills"`
	Diagnostics    int       `json:"diagnostics"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// CachedResult Redis 中缓存的一次解析结果
type CachedResult struct {
	Record      *types.ResumeRecord `json:"record"`
	JobFit      *types.JobFitResult `json:"job_fit,omitempty"`
	Diagnostics types.Diagnostics   `json:"diagnostics"`
	Version     string              `json:"version"`
	CachedAt    time.Time           `json:"cached_at"`
}
