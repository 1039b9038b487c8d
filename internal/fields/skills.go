package fields

import (
	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/types"
)

// ExtractSkills 在 skills 章节中查找目录技能，没有 skills 章节时扫描全文。
// 结果去重并按名称排序。
func ExtractSkills(cat *catalog.Catalog, sections types.SectionMap, fullText string, diags *types.Diagnostics) []types.SkillEntry {
	source, ok := sections[types.SectionSkills]
	if !ok {
		if fullText != "" {
			diags.Add(types.StageFields, "skills_fallback", "未识别到技能章节，改为扫描全文")
		}
		source = fullText
	}
	if cat == nil || source == "" {
		return []types.SkillEntry{}
	}
	return cat.Scan(source)
}
