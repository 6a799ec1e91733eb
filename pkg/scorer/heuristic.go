package scorer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/theapemachine/goldmine/pkg/memory"
)

// keywordGroup contributes its delta at most once, no matter how often
// its words repeat in the text.
type keywordGroup struct {
	tag   string
	delta int
	words []string
}

// keywordGroups is the fixed, bilingual signal table. Order matters only
// for tag order in the output.
var keywordGroups = []keywordGroup{
	{tag: "win", delta: 15, words: []string{"win", "profit", "take profit", "盈利", "止盈", "赚"}},
	{tag: "loss", delta: 10, words: []string{"loss", "stop loss", "止损", "亏损"}},
	{tag: "pattern", delta: 10, words: []string{"pattern", "形态", "规律"}},
	{tag: "fix", delta: 10, words: []string{"fix", "resolved", "solution", "修复", "解决"}},
	{tag: "rule", delta: 10, words: []string{"rule", "规则", "纪律"}},
	{tag: "indicator", delta: 5, words: []string{"rsi", "macd", "ema", "bollinger", "指标"}},
	{tag: "architecture", delta: 10, words: []string{"architecture", "design", "架构", "设计"}},
	{tag: "lesson", delta: 5, words: []string{"lesson", "experience", "教训", "经验"}},
}

// Heuristic is the deterministic rule-based scorer. It is a pure
// function of the record and never fails.
type Heuristic struct{}

// NewHeuristic returns the rule-based scorer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Score scores a single record with the fixed rule table.
func (h *Heuristic) Score(rec memory.Record) memory.ScoredRecord {
	lowered := strings.ToLower(rec.Text)
	score := 50

	var tags []string

	for _, group := range keywordGroups {
		for _, word := range group.words {
			if strings.Contains(lowered, word) {
				score += group.delta
				tags = append(tags, group.tag)
				break
			}
		}
	}

	// Length rules count characters, matching the pre-filter.
	length := utf8.RuneCountInString(rec.Text)

	if length > 200 {
		score += 5
	}
	if length > 500 {
		score += 5
	}

	if strings.Contains(lowered, "error") && strings.Contains(lowered, "500") {
		score -= 10
	}
	if length < 30 {
		score -= 20
	}
	if strings.Contains(lowered, "skipping") || strings.Contains(lowered, "no output") {
		score -= 15
	}
	if strings.Contains(lowered, "test") && !strings.Contains(lowered, "backtest") {
		score -= 10
	}

	score = memory.ClampScore(score)

	return memory.ScoredRecord{
		Record:   rec,
		Score:    score,
		Category: categorize(rec.Agent, tags, score),
		Tags:     tags,
		Method:   memory.MethodRule,
	}
}

// ScoreBatch applies Score independently to every record, in order.
func (h *Heuristic) ScoreBatch(ctx context.Context, records []memory.Record) ([]memory.ScoredRecord, error) {
	scored := make([]memory.ScoredRecord, 0, len(records))

	for _, rec := range records {
		scored = append(scored, h.Score(rec))
	}

	return scored, nil
}

// categorize derives the category from the agent and collected tags,
// then applies the two universal overrides. The order resolves ties
// between conflicting signals and must not change: group/tag rules
// first, then the rule-tag override, then the noise floor.
func categorize(agent string, tags []string, score int) memory.Category {
	category := baseCategory(agent, tags, score)

	if hasTag(tags, "rule") {
		category = memory.CategorySystemRule
	}

	if score < 30 {
		category = memory.CategoryNoise
	}

	return category
}

func baseCategory(agent string, tags []string, score int) memory.Category {
	trading := isTradingAgent(agent)

	if trading {
		switch {
		case hasTag(tags, "win"):
			return memory.CategoryTradingWinPattern
		case hasTag(tags, "loss"), hasTag(tags, "lesson"):
			return memory.CategoryTradingLossLesson
		case hasTag(tags, "pattern"), hasTag(tags, "indicator"):
			return memory.CategoryMarketInsight
		}
	}

	switch {
	case hasTag(tags, "fix"):
		return memory.CategoryTechnicalSolution
	case hasTag(tags, "architecture"):
		return memory.CategoryArchitectureDecision
	}

	if score > 50 {
		if trading {
			return memory.CategoryMarketInsight
		}
		return memory.CategoryGeneralKnowledge
	}

	return memory.CategoryNoise
}

func isTradingAgent(agent string) bool {
	lowered := strings.ToLower(agent)

	return strings.Contains(lowered, "trad") ||
		strings.Contains(lowered, "quant") ||
		strings.Contains(lowered, "market")
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
