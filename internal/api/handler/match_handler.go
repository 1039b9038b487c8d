package handler

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"smarthire-ats/internal/types"
)

// JobFitRequest 直接计算岗位匹配度的请求
type JobFitRequest struct {
	Skills         []string                `json:"skills"`
	Experience     []types.ExperienceEntry `json:"experience"`
	JobTitle       string                  `json:"job_title"`
	JobDescription string                  `json:"job_description"`
}

// HandleJobFit 用已知的技能和经历计算岗位匹配度
// POST /api/v1/match/job-fit
func (h *ResumeHandler) HandleJobFit(ctx context.Context, c *app.RequestContext) {
	var req JobFitRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		respondError(ctx, c, consts.StatusBadRequest, "请求体不是合法的JSON", err)
		return
	}
	c.JSON(consts.StatusOK, h.parser.JobFitFor(req.Skills, req.Experience, req.JobTitle, req.JobDescription))
}

// HandleHealth 健康检查
// GET /api/v1/health
func HandleHealth(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}
