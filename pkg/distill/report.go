package distill

import (
	"fmt"
	"time"

	"github.com/cohesivestack/valgo"

	"github.com/theapemachine/goldmine/pkg/memory"
)

const (
	previewEntries   = 5
	previewTextLimit = 160
)

// RunConfiguration describes one distillation run. Agent order defines
// report order only; duplicates are harmless.
type RunConfiguration struct {
	Agents        []string
	MinScore      int
	MaxPerAgent   int
	Categories    []memory.Category
	DryRun        bool
	Snapshot      bool
	ForceRuleOnly bool
}

// Validate surfaces configuration errors before any processing begins.
func (runCfg *RunConfiguration) Validate() error {
	val := valgo.Is(valgo.Number(len(runCfg.Agents), "agents").GreaterThan(0)).
		Is(valgo.Number(runCfg.MinScore, "min_score").Between(0, 100)).
		Is(valgo.Number(runCfg.MaxPerAgent, "max_per_agent").GreaterOrEqualTo(0))

	if !val.Valid() {
		return fmt.Errorf("invalid run configuration: %w", val.Error())
	}

	for _, category := range runCfg.Categories {
		if !memory.ValidCategory(category) {
			return fmt.Errorf("invalid run configuration: unknown category %q", category)
		}
	}

	return nil
}

// eligible returns the retention category set. An empty configured set
// means every category except the noise sentinel.
func (runCfg *RunConfiguration) eligible() map[memory.Category]bool {
	categories := runCfg.Categories
	if len(categories) == 0 {
		categories = memory.KeepableCategories
	}

	set := make(map[memory.Category]bool, len(categories))
	for _, category := range categories {
		set[category] = true
	}

	return set
}

// PreviewEntry is one row of an agent's top-ranked preview.
type PreviewEntry struct {
	Text     string
	Score    int
	Category memory.Category
}

// AgentReport is the per-agent breakdown of a run.
type AgentReport struct {
	Agent     string
	Processed int // survived the pre-filter
	Kept      int // survived retention and the cap
	Preview   []PreviewEntry
}

// RunReport is the sole output returned to the caller. Persistence of
// the retained records is a side effect, not part of the report.
type RunReport struct {
	RunID        string
	StartedAt    time.Time
	Processed    int
	Kept         int
	Discarded    int // always Processed - Kept
	Agents       []AgentReport
	SnapshotPath string
}

// preview renders the top-ranked kept records, text truncated for
// console display.
func preview(kept []memory.ScoredRecord) []PreviewEntry {
	entries := make([]PreviewEntry, 0, previewEntries)

	for _, rec := range kept {
		if len(entries) == previewEntries {
			break
		}

		entries = append(entries, PreviewEntry{
			Text:     truncate(rec.Text, previewTextLimit),
			Score:    rec.Score,
			Category: rec.Category,
		})
	}

	return entries
}

// truncate shortens text to at most limit runes, ellipsis-suffixed when
// anything was cut.
func truncate(text string, limit int) string {
	runes := []rune(text)

	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit]) + "…"
}
