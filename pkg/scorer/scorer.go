/*
Package scorer contains the scoring pipeline for goldmine: a cheap
pre-filter, a deterministic rule-based scorer, and a batched LLM scorer
that falls back to the rules when the external service misbehaves.
*/
package scorer

import (
	"context"

	"github.com/theapemachine/goldmine/pkg/memory"
)

// Scorer assigns a quality score, category, and tags to records.
// Exactly one implementation is selected per run.
type Scorer interface {
	ScoreBatch(ctx context.Context, records []memory.Record) ([]memory.ScoredRecord, error)
}
