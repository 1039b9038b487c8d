package catalog

import (
	"sort"
	"strings"
	"unicode"

	"smarthire-ats/internal/types"
)

// 分词时视为分隔符的标点，"/" "+" "#" "." 保留在词内（CI/CD、C++、C#、Node.js）
func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', ';', '|', '•', '(', ')', '[', ']', '{', '}', '·', '●', '▪':
		return true
	}
	return false
}

// Tokenize 将文本切分为候选技能词，去掉词尾的句读和两侧引号
func Tokenize(text string) []string {
	raw := strings.FieldsFunc(text, isSeparator)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, `"'“”‘’`)
		tok = strings.TrimRight(tok, ".:!?")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Scan 在文本中查找目录技能：逐个检查单词以及相邻的多词组合，
// 组合长度不超过目录中最长名称的词数。结果去重并按名称排序。
func (c *Catalog) Scan(text string) []types.SkillEntry {
	tokens := Tokenize(text)
	found := make(map[string]types.SkillEntry)

	maxN := c.maxPhrase
	if maxN < 2 {
		maxN = 2
	}
	for i := range tokens {
		for n := 1; n <= maxN && i+n <= len(tokens); n++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if entry, ok := c.Lookup(phrase); ok {
				found[entry.Name] = entry
			}
		}
	}

	out := make([]types.SkillEntry, 0, len(found))
	for _, e := range found {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ScanNames 与 Scan 相同，只返回规范名称
func (c *Catalog) ScanNames(text string) []string {
	entries := c.Scan(text)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
