package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"smarthire-ats/internal/storage/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// RankedResume 岗位候选人列表中的一项
type RankedResume struct {
	SubmissionUUID   string   `json:"submission_uuid"`
	CandidateName    string   `json:"candidate_name"`
	CandidateEmail   string   `json:"candidate_email"`
	OriginalFilename string   `json:"original_filename"`
	ATSScore         float64  `json:"ats_score"`
	JobFitScore      *float64 `json:"job_fit_score"`
}

// PaginatedResumeResponse 分页结果
type PaginatedResumeResponse struct {
	JobID      string         `json:"job_id"`
	Cursor     int64          `json:"cursor"`
	NextCursor int64          `json:"next_cursor"`
	Size       int64          `json:"size"`
	TotalCount int64          `json:"total_count"`
	Resumes    []RankedResume `json:"resumes"`
}

// HandleListByJob 按岗位分页列出已分析的简历，按匹配度排序
// GET /api/v1/jobs/:job_id/resumes?cursor=0&size=10
func (h *ResumeHandler) HandleListByJob(ctx context.Context, c *app.RequestContext) {
	if h.store == nil {
		respondError(ctx, c, consts.StatusServiceUnavailable, "分析记录存储未启用", nil)
		return
	}

	jobID := c.Param("job_id")
	if jobID == "" {
		respondError(ctx, c, consts.StatusBadRequest, "job_id 不能为空", nil)
		return
	}

	cursor := int64(0)
	size := int64(defaultPageSize)
	if v, err := strconv.ParseInt(c.Query("cursor"), 10, 64); err == nil && v > 0 {
		cursor = v
	}
	if v, err := strconv.ParseInt(c.Query("size"), 10, 64); err == nil && v > 0 && v <= maxPageSize {
		size = v
	}

	analyses, total, err := h.store.ListByJob(ctx, jobID, int(cursor), int(size))
	if err != nil {
		respondError(ctx, c, consts.StatusInternalServerError, "获取岗位简历列表失败", err)
		return
	}

	nextCursor := cursor + int64(len(analyses))
	if nextCursor >= total {
		// 已经是最后一页，游标保持不变
		nextCursor = cursor
	}

	c.JSON(consts.StatusOK, PaginatedResumeResponse{
		JobID:      jobID,
		Cursor:     cursor,
		NextCursor: nextCursor,
		Size:       size,
		TotalCount: total,
		Resumes:    toRankedResumes(analyses),
	})
}

func toRankedResumes(analyses []models.ResumeAnalysis) []RankedResume {
	out := make([]RankedResume, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, RankedResume{
			SubmissionUUID:   a.SubmissionUUID,
			CandidateName:    a.CandidateName,
			CandidateEmail:   a.CandidateEmail,
			OriginalFilename: a.OriginalFilename,
			ATSScore:         a.ATSScore,
			JobFitScore:      a.JobFitScore,
		})
	}
	return out
}
