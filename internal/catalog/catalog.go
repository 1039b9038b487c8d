// Package catalog 技能目录：规范技能名称到类别、同义词、重要度的只读映射。
// 目录在启动时构建一次，之后不再修改，可并发使用。
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"smarthire-ats/internal/types"
)

//go:embed skills.yaml
var defaultSkillsYAML []byte

// ErrInvalidCatalog 目录数据不合法，启动时应直接退出
var ErrInvalidCatalog = errors.New("技能目录不合法")

// Categories 允许的技能类别
var Categories = map[string]bool{
	"programming": true,
	"frontend":    true,
	"backend":     true,
	"devops":      true,
	"cloud":       true,
	"data":        true,
	"database":    true,
	"methodology": true,
	"tooling":     true,
}

// Skill 目录中的一个条目
type Skill struct {
	Name       string   `yaml:"name"`
	Category   string   `yaml:"category"`
	Synonyms   []string `yaml:"synonyms"`
	Importance float64  `yaml:"importance"`
}

// Entry 转换为解析结果中使用的 SkillEntry
func (s Skill) Entry() types.SkillEntry {
	return types.SkillEntry{Name: s.Name, Category: s.Category, Importance: s.Importance}
}

type catalogFile struct {
	Skills []Skill `yaml:"skills"`
}

// Catalog 不可变的技能目录
type Catalog struct {
	skills    []Skill        // 按规范名称排序
	index     map[string]int // 归一化的名称/同义词 -> skills 下标
	maxPhrase int            // 名称或同义词的最大词数
}

// Default 加载内置目录
func Default() (*Catalog, error) {
	return Parse(defaultSkillsYAML)
}

// MustDefault 加载内置目录，失败时 panic，仅用于测试和初始化
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load 从文件加载目录，path 为空时使用内置目录
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取目录文件失败: %v", ErrInvalidCatalog, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 格式的目录数据
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(f.Skills)
}

// New 校验并构建目录。同一个词出现在多个条目中时，按规范名称排序后靠前的条目生效。
func New(skills []Skill) (*Catalog, error) {
	if len(skills) == 0 {
		return nil, fmt.Errorf("%w: 目录为空", ErrInvalidCatalog)
	}

	sorted := make([]Skill, len(skills))
	copy(sorted, skills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	c := &Catalog{
		skills: sorted,
		index:  make(map[string]int, len(sorted)*3),
	}
	seen := make(map[string]bool, len(sorted))
	for i, s := range sorted {
		key := Normalize(s.Name)
		switch {
		case key == "":
			return nil, fmt.Errorf("%w: 第 %d 个条目缺少名称", ErrInvalidCatalog, i+1)
		case seen[key]:
			return nil, fmt.Errorf("%w: 重复的技能 %q", ErrInvalidCatalog, s.Name)
		case !Categories[s.Category]:
			return nil, fmt.Errorf("%w: 技能 %q 的类别 %q 未知", ErrInvalidCatalog, s.Name, s.Category)
		case s.Importance < 0 || s.Importance > 1:
			return nil, fmt.Errorf("%w: 技能 %q 的重要度 %v 超出 [0,1]", ErrInvalidCatalog, s.Name, s.Importance)
		}
		seen[key] = true

		c.addTerm(key, i)
		for _, syn := range s.Synonyms {
			if k := Normalize(syn); k != "" {
				c.addTerm(k, i)
			}
		}
	}
	return c, nil
}

func (c *Catalog) addTerm(key string, idx int) {
	if _, exists := c.index[key]; !exists {
		c.index[key] = idx
	}
	if n := len(strings.Fields(key)); n > c.maxPhrase {
		c.maxPhrase = n
	}
}

// Lookup 不区分大小写地按名称或同义词精确查找
func (c *Catalog) Lookup(term string) (types.SkillEntry, bool) {
	idx, ok := c.index[Normalize(term)]
	if !ok {
		return types.SkillEntry{}, false
	}
	return c.skills[idx].Entry(), true
}

// Skills 返回按规范名称排序的全部条目副本
func (c *Catalog) Skills() []Skill {
	out := make([]Skill, len(c.skills))
	copy(out, c.skills)
	return out
}

// Synonyms 返回规范名称对应的同义词，名称不存在时返回 nil
func (c *Catalog) Synonyms(name string) []string {
	idx, ok := c.index[Normalize(name)]
	if !ok || c.skills[idx].Name != name {
		return nil
	}
	return append([]string(nil), c.skills[idx].Synonyms...)
}

// Len 目录条目数
func (c *Catalog) Len() int { return len(c.skills) }

// MaxPhraseWords 名称或同义词中最长的词数
func (c *Catalog) MaxPhraseWords() int { return c.maxPhrase }

// Normalize 小写并压缩空白
func Normalize(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
