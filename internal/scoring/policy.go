package scoring

import (
	"fmt"
	"math"

	"smarthire-ats/internal/config"
)

// Policy 评分策略，只有 FullATS 和 SimpleJobFit 两种实现，二者互不混用
type Policy interface {
	Name() string
	policy()
}

// FullATS 四项加权的 ATS 总分策略
type FullATS struct {
	weights config.ScoringWeights
}

// NewFullATS 校验权重后创建策略：每项在 [0,1] 内，且总和在 (0,1] 内
func NewFullATS(w config.ScoringWeights) (FullATS, error) {
	for name, v := range map[string]float64{"skill": w.Skill, "experience": w.Experience, "education": w.Education, "compliance": w.Compliance} {
		if v < 0 || v > 1 {
			return FullATS{}, fmt.Errorf("%w: FullATS 权重 %s 超出 [0,1]: %v", config.ErrInvalidConfig, name, v)
		}
	}
	if sum := w.Sum(); sum <= 0 || sum > 1.000001 {
		return FullATS{}, fmt.Errorf("%w: FullATS 权重之和 %v 不在 (0,1] 内", config.ErrInvalidConfig, sum)
	}
	return FullATS{weights: w}, nil
}

// Name 实现 Policy
func (FullATS) Name() string { return "full_ats" }
func (FullATS) policy()      {}

// Weights 返回策略使用的权重
func (p FullATS) Weights() config.ScoringWeights { return p.weights }

// Combine 加权求和，保留 2 位小数并限制在 [0,100]
func (p FullATS) Combine(skill, experience, education, compliance float64) float64 {
	w := p.weights
	total := skill*w.Skill + experience*w.Experience + education*w.Education + compliance*w.Compliance
	return clamp(roundTo(total, 2), 0, 100)
}

// SimpleJobFit 技能与经验两项加权的岗位匹配策略
type SimpleJobFit struct {
	skillWeight      float64
	experienceWeight float64
}

// NewSimpleJobFit 两个权重均非负且总和不超过 1
func NewSimpleJobFit(skillWeight, experienceWeight float64) (SimpleJobFit, error) {
	if skillWeight < 0 || experienceWeight < 0 || skillWeight+experienceWeight > 1.000001 {
		return SimpleJobFit{}, fmt.Errorf("%w: SimpleJobFit 权重不合法: %v/%v", config.ErrInvalidConfig, skillWeight, experienceWeight)
	}
	return SimpleJobFit{skillWeight: skillWeight, experienceWeight: experienceWeight}, nil
}

// Name 实现 Policy
func (SimpleJobFit) Name() string { return "simple_job_fit" }
func (SimpleJobFit) policy()      {}

// Combine 加权求和，保留 1 位小数
func (p SimpleJobFit) Combine(skill, experience float64) float64 {
	return roundTo(skill*p.skillWeight+experience*p.experienceWeight, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
