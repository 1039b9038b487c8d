package handler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthire-ats/internal/api/handler"
	"smarthire-ats/internal/config"
	"smarthire-ats/internal/constants"
	"smarthire-ats/internal/storage/models"
)

// TestHandleListByJob 按岗位分页查询，按匹配度排序
func TestHandleListByJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		score := float64(10 * (i + 1))
		a := &models.ResumeAnalysis{
			SubmissionUUID:   fmt.Sprintf("0190a1b2-0000-7000-8000-00000000000%d", i),
			TargetJobID:      "job-7",
			CandidateName:    fmt.Sprintf("Candidate %d", i),
			ATSScore:         50,
			JobFitScore:      &score,
			ProcessingStatus: constants.StatusAnalyzed,
		}
		require.NoError(t, store.SaveAnalysis(ctx, a, nil))
	}

	h := handler.NewResumeHandler(config.DefaultConfig(), newTestParser(t), handler.WithStore(store))
	engine := newEngine(h)

	w := ut.PerformRequest(engine.Engine, consts.MethodGet, "/api/v1/jobs/job-7/resumes?size=2", nil)
	resp := w.Result()
	require.Equal(t, consts.StatusOK, resp.StatusCode(), string(resp.Body()))

	var page handler.PaginatedResumeResponse
	decode(t, resp.Body(), &page)
	assert.EqualValues(t, 5, page.TotalCount)
	assert.EqualValues(t, 2, page.NextCursor)
	require.Len(t, page.Resumes, 2)
	assert.Equal(t, "Candidate 4", page.Resumes[0].CandidateName)
	assert.Equal(t, "Candidate 3", page.Resumes[1].CandidateName)

	w = ut.PerformRequest(engine.Engine, consts.MethodGet, "/api/v1/jobs/job-7/resumes?cursor=4&size=2", nil)
	decode(t, w.Result().Body(), &page)
	require.Len(t, page.Resumes, 1)
	assert.Equal(t, "Candidate 0", page.Resumes[0].CandidateName)
	// 最后一页游标不变
	assert.EqualValues(t, 4, page.NextCursor)

	w = ut.PerformRequest(engine.Engine, consts.MethodGet, "/api/v1/jobs/unknown/resumes", nil)
	decode(t, w.Result().Body(), &page)
	assert.Empty(t, page.Resumes)
	assert.NotNil(t, page.Resumes)
	assert.EqualValues(t, 10, page.Size)
}

func TestHandleListByJob_StoreDisabled(t *testing.T) {
	engine := newEngine(handler.NewResumeHandler(config.DefaultConfig(), newTestParser(t)))
	w := ut.PerformRequest(engine.Engine, consts.MethodGet, "/api/v1/jobs/job-7/resumes", nil)
	assert.Equal(t, consts.StatusServiceUnavailable, w.Result().StatusCode())
}
