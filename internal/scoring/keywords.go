package scoring

import (
	"math"
	"sort"
	"strings"

	"smarthire-ats/internal/catalog"
	"smarthire-ats/internal/nlp"
	"smarthire-ats/internal/types"
)

// keywordEntityLabels JD 中作为关键词保留的实体类型
var keywordEntityLabels = []string{"ORG", "PRODUCT", "TECH"}

// DensityResult 关键词密度统计结果
type DensityResult struct {
	Matches    map[string]types.KeywordMatch
	MatchRatio float64
	Qualified  bool
	WordCount  int
}

// KeywordDensity 统计每个关键词在全文中的出现次数和密度（百分比，保留 4 位小数）。
// 全文和关键词用同一个保留 "+#./" 的分词器切分（c++ 与 c# 是不同的词），
// 多词关键词按连续词序列计数。密度 >= threshold 视为命中，
// 命中数 / 关键词数 >= qualifiedRatio 时 Qualified 为 true。
func KeywordDensity(text string, keywords []string, threshold, qualifiedRatio float64) DensityResult {
	result := DensityResult{Matches: map[string]types.KeywordMatch{}}
	if text == "" || len(keywords) == 0 {
		return result
	}

	result.WordCount = len(strings.Fields(text))
	words := lowerTokens(text)

	matched := 0
	for _, kw := range dedupeLower(keywords) {
		count := countSequence(words, lowerTokens(kw))
		density := 0.0
		if result.WordCount > 0 {
			density = roundTo(float64(count)/float64(result.WordCount)*100, 4)
		}
		m := types.KeywordMatch{Count: count, Density: density, MatchesRequired: density >= threshold}
		if m.MatchesRequired {
			matched++
		}
		result.Matches[kw] = m
	}

	if len(result.Matches) > 0 {
		result.MatchRatio = float64(matched) / float64(len(result.Matches))
	}
	result.Qualified = result.MatchRatio >= qualifiedRatio
	return result
}

func lowerTokens(text string) []string {
	tokens := catalog.Tokenize(text)
	for i, tok := range tokens {
		tokens[i] = strings.ToLower(tok)
	}
	return tokens
}

func countSequence(words, seq []string) int {
	if len(seq) == 0 || len(seq) > len(words) {
		return 0
	}
	count := 0
outer:
	for i := 0; i+len(seq) <= len(words); i++ {
		for j, w := range seq {
			if words[i+j] != w {
				continue outer
			}
		}
		count++
	}
	return count
}

// ExtractJobKeywords 从职位描述中提取关键词：长度大于 minLen 的名词短语、
// ORG/PRODUCT/TECH 实体，以及目录中能识别出的技能（规范名）。
// 结果小写、去重、排序。analyzer 出错时仍返回目录技能部分，并返回错误。
func ExtractJobKeywords(jd string, analyzer nlp.Analyzer, cat *catalog.Catalog, minLen int) ([]string, error) {
	if strings.TrimSpace(jd) == "" {
		return []string{}, nil
	}

	var keywords []string
	if cat != nil {
		keywords = append(keywords, cat.ScanNames(jd)...)
	}

	var err error
	if analyzer != nil {
		var analysis nlp.Analysis
		analysis, err = analyzer.Analyze(strings.ToLower(jd))
		if err == nil {
			for _, chunk := range analysis.NounChunks {
				if len(chunk) > minLen {
					keywords = append(keywords, chunk)
				}
			}
			keywords = append(keywords, analysis.EntitiesWithLabel(keywordEntityLabels...)...)
		}
	}

	return dedupeLower(keywords), err
}

// dedupeLower 小写、去掉首尾空白、去重并排序
func dedupeLower(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		k := strings.ToLower(strings.TrimSpace(it))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
