package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"smarthire-ats/internal/types"
)

// ResumeAnalysis 一次简历分析的持久化记录
type ResumeAnalysis struct {
	SubmissionUUID      string         `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time      `gorm:"index:idx_ra_submission_timestamp"`
	OriginalFilename    string         `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string         `gorm:"type:varchar(1024)"`
	RawFileMD5          string         `gorm:"type:char(32);index:idx_ra_raw_file_md5"`
	TargetJobID         string         `gorm:"type:varchar(64);index:idx_ra_target_job_id"`
	JobTitle            string         `gorm:"type:varchar(255)"`
	JobDescriptionMD5   string         `gorm:"type:char(32)"`
	CandidateName       string         `gorm:"type:varchar(255)"`
	CandidateEmail      string         `gorm:"type:varchar(255);index:idx_ra_candidate_email"`
	CandidatePhone      string         `gorm:"type:varchar(50)"`
	ATSScore            float64        `gorm:"index:idx_ra_ats_score"`
	JobFitScore         *float64
	RecordJSON          datatypes.JSON
	JobFitJSON          datatypes.JSON
	DiagnosticsJSON     datatypes.JSON
	ProcessingStatus    string         `gorm:"type:varchar(50);index:idx_ra_processing_status"`
	ErrorMessage        string         `gorm:"type:text"`
	ParserVersion       string         `gorm:"type:varchar(50)"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ResumeAnalysis) TableName() string {
	return "resume_analyses"
}

// ApplyRecord 将解析结果写入模型，record 为 nil 时只清空分数
func (a *ResumeAnalysis) ApplyRecord(record *types.ResumeRecord, jobFit *types.JobFitResult, diags types.Diagnostics) error {
	if record == nil {
		record = types.NewEmptyRecord()
	}
	a.CandidateName = record.Name
	a.CandidateEmail = record.Email
	a.CandidatePhone = record.Phone
	a.ATSScore = record.ATSScore

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return err
	}
	a.RecordJSON = datatypes.JSON(recordJSON)

	a.JobFitScore = nil
	a.JobFitJSON = nil
	if jobFit != nil {
		score := jobFit.Score
		a.JobFitScore = &score
		fitJSON, err := json.Marshal(jobFit)
		if err != nil {
			return err
		}
		a.JobFitJSON = datatypes.JSON(fitJSON)
	}

	if diags == nil {
		diags = types.Diagnostics{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return err
	}
	a.DiagnosticsJSON = datatypes.JSON(diagJSON)
	return nil
}

// Record 还原解析结果，未保存时返回空记录
func (a *ResumeAnalysis) Record() (*types.ResumeRecord, error) {
	record := types.NewEmptyRecord()
	if len(a.RecordJSON) == 0 {
		return record, nil
	}
	if err := json.Unmarshal(a.RecordJSON, record); err != nil {
		return nil, err
	}
	return record, nil
}

// JobFit 还原岗位匹配结果，没有时返回 nil
func (a *ResumeAnalysis) JobFit() (*types.JobFitResult, error) {
	if len(a.JobFitJSON) == 0 {
		return nil, nil
	}
	var fit types.JobFitResult
	if err := json.Unmarshal(a.JobFitJSON, &fit); err != nil {
		return nil, err
	}
	return &fit, nil
}

// Diagnostics 还原诊断信息
func (a *ResumeAnalysis) Diagnostics() (types.Diagnostics, error) {
	diags := types.Diagnostics{}
	if len(a.DiagnosticsJSON) == 0 {
		return diags, nil
	}
	if err := json.Unmarshal(a.DiagnosticsJSON, &diags); err != nil {
		return nil, err
	}
	return diags, nil
}
