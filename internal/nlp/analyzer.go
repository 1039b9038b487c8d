// Package nlp 命名实体识别与名词短语切分。
// 只做关键词级别的处理，底层使用 jdkato/prose 的分词、词性标注和 NER 模型。
package nlp

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Entity 命名实体
type Entity struct {
	Text  string
	Label string // PERSON, GPE, ORG ...
}

// Token 带词性标注的词
type Token struct {
	Text string
	Tag  string // Penn Treebank 标签
}

// Analysis 一段文本的分析结果
type Analysis struct {
	Entities   []Entity
	Tokens     []Token
	NounChunks []string
}

// EntitiesWithLabel 返回指定标签的实体文本
func (a Analysis) EntitiesWithLabel(labels ...string) []string {
	var out []string
	for _, e := range a.Entities {
		for _, l := range labels {
			if e.Label == l {
				out = append(out, e.Text)
				break
			}
		}
	}
	return out
}

// Analyzer 文本分析接口，测试中可替换为固定结果
type Analyzer interface {
	Analyze(text string) (Analysis, error)
}

// AnalyzerFunc 函数适配器
type AnalyzerFunc func(text string) (Analysis, error)

// Analyze 实现 Analyzer
func (f AnalyzerFunc) Analyze(text string) (Analysis, error) { return f(text) }

// ProseAnalyzer 基于 prose 的实现，无状态，可并发使用
type ProseAnalyzer struct{}

// NewProseAnalyzer 创建 prose 分析器
func NewProseAnalyzer() *ProseAnalyzer {
	return &ProseAnalyzer{}
}

// Analyze 实现 Analyzer
func (p *ProseAnalyzer) Analyze(text string) (result Analysis, err error) {
	if strings.TrimSpace(text) == "" {
		return Analysis{}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prose 分析panic: %v", r)
		}
	}()

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return Analysis{}, fmt.Errorf("prose 分析失败: %w", err)
	}

	for _, ent := range doc.Entities() {
		result.Entities = append(result.Entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	for _, tok := range doc.Tokens() {
		result.Tokens = append(result.Tokens, Token{Text: tok.Text, Tag: tok.Tag})
	}
	result.NounChunks = NounChunks(result.Tokens)
	return result, nil
}

func isNoun(tag string) bool { return strings.HasPrefix(tag, "NN") }

func isModifier(tag string) bool {
	return strings.HasPrefix(tag, "JJ") || tag == "VBG" || tag == "CD"
}

// NounChunks 把连续的修饰词和名词合并为短语，短语必须以名词结尾
func NounChunks(tokens []Token) []string {
	var (
		chunks []string
		run    []Token
	)
	flush := func() {
		end := len(run)
		for end > 0 && !isNoun(run[end-1].Tag) {
			end--
		}
		if end > 0 {
			words := make([]string, end)
			for i := 0; i < end; i++ {
				words[i] = run[i].Text
			}
			chunks = append(chunks, strings.Join(words, " "))
		}
		run = run[:0]
	}

	for _, tok := range tokens {
		if isNoun(tok.Tag) || isModifier(tok.Tag) {
			run = append(run, tok)
			continue
		}
		flush()
	}
	flush()
	return chunks
}
