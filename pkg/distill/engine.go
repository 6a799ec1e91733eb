/*
Package distill runs the selection and aggregation pipeline: fetch raw
records per agent, pre-filter, score, rank, cap, and optionally persist
the survivors into the golden collection.
*/
package distill

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theapemachine/goldmine/pkg/config"
	"github.com/theapemachine/goldmine/pkg/memory"
	"github.com/theapemachine/goldmine/pkg/scorer"
)

// Store is the vector-store collaborator the engine consumes.
type Store interface {
	FetchAll(ctx context.Context, collection, agent, namespace string) ([]memory.Record, error)
	CollectionGeometry(ctx context.Context, collection string) (memory.VectorGeometry, bool, error)
	EnsureCollection(ctx context.Context, collection string, geom memory.VectorGeometry) error
	Upsert(ctx context.Context, collection string, records []memory.ScoredRecord) error
	Snapshot(ctx context.Context, collection string) (string, error)
	ListSnapshots(ctx context.Context, collection string) ([]string, error)
}

// Engine wires the store and both scorers together. The scorer used for
// a run is fixed once, at the start of the run.
type Engine struct {
	cfg   *config.Config
	store Store
	rule  scorer.Scorer
	llm   scorer.Scorer
}

// New builds an engine on the given store. The LLM scorer is only
// constructed when the configuration enables it.
func New(cfg *config.Config, store Store) *Engine {
	engine := &Engine{
		cfg:   cfg,
		store: store,
		rule:  scorer.NewHeuristic(),
	}

	if cfg.LLMEnabled {
		engine.llm = scorer.NewLLM(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBatchSize)
	}

	return engine
}

// Distill runs the full pipeline for the given configuration. Any store
// failure aborts the run; no partial report is returned.
func (engine *Engine) Distill(ctx context.Context, runCfg RunConfiguration) (*RunReport, error) {
	if err := runCfg.Validate(); err != nil {
		return nil, err
	}

	chosen := engine.rule
	mode := memory.MethodRule

	if engine.llm != nil && !runCfg.ForceRuleOnly {
		chosen = engine.llm
		mode = memory.MethodLLM
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	eligible := runCfg.eligible()

	var retained []memory.ScoredRecord

	log.Info("distill: starting run", "run", report.RunID, "agents", len(runCfg.Agents), "mode", mode, "dryRun", runCfg.DryRun)

	for _, agent := range runCfg.Agents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := engine.store.FetchAll(ctx, engine.cfg.SourceCollection, agent, "")
		if err != nil {
			return nil, fmt.Errorf("fetch records for agent %s: %w", agent, err)
		}

		survivors := scorer.Prefilter(records)
		log.Info("distill: pre-filter", "agent", agent, "fetched", len(records), "rejected", len(records)-len(survivors))

		scored, err := chosen.ScoreBatch(ctx, survivors)
		if err != nil {
			return nil, fmt.Errorf("score records for agent %s: %w", agent, err)
		}

		kept := retain(scored, runCfg.MinScore, eligible)

		// Stable sort: records with equal scores stay in fetch order.
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Score > kept[j].Score
		})

		if len(kept) > runCfg.MaxPerAgent {
			kept = kept[:runCfg.MaxPerAgent]
		}

		report.Agents = append(report.Agents, AgentReport{
			Agent:     agent,
			Processed: len(survivors),
			Kept:      len(kept),
			Preview:   preview(kept),
		})

		report.Processed += len(survivors)
		report.Kept += len(kept)
		retained = append(retained, kept...)

		log.Info("distill: agent done", "agent", agent, "processed", len(survivors), "kept", len(kept))
	}

	report.Discarded = report.Processed - report.Kept

	if !runCfg.DryRun {
		if err := engine.persist(ctx, retained, runCfg.Snapshot, report); err != nil {
			return nil, err
		}
	}

	log.Info("distill: run complete", "run", report.RunID, "processed", report.Processed, "kept", report.Kept, "discarded", report.Discarded)

	return report, nil
}

// retain applies the retention filter: minimum score, non-noise, and
// membership in the eligible category set.
func retain(scored []memory.ScoredRecord, minScore int, eligible map[memory.Category]bool) []memory.ScoredRecord {
	kept := make([]memory.ScoredRecord, 0, len(scored))

	for _, rec := range scored {
		if rec.Score < minScore {
			continue
		}
		if rec.Category == memory.CategoryNoise {
			continue
		}
		if !eligible[rec.Category] {
			continue
		}

		kept = append(kept, rec)
	}

	return kept
}

// persist writes the retained set into the golden collection and
// optionally snapshots it afterward.
func (engine *Engine) persist(ctx context.Context, retained []memory.ScoredRecord, snapshot bool, report *RunReport) error {
	geom, exists, err := engine.store.CollectionGeometry(ctx, engine.cfg.SourceCollection)
	if err != nil {
		return fmt.Errorf("read source geometry: %w", err)
	}
	if !exists {
		geom = memory.DefaultGeometry
	}

	if err := engine.store.EnsureCollection(ctx, engine.cfg.GoldenCollection, geom); err != nil {
		return fmt.Errorf("ensure golden collection: %w", err)
	}

	if err := engine.store.Upsert(ctx, engine.cfg.GoldenCollection, retained); err != nil {
		return fmt.Errorf("upsert golden records: %w", err)
	}

	log.Info("distill: persisted", "collection", engine.cfg.GoldenCollection, "records", len(retained))

	if snapshot {
		name, err := engine.store.Snapshot(ctx, engine.cfg.GoldenCollection)
		if err != nil {
			return fmt.Errorf("snapshot golden collection: %w", err)
		}

		report.SnapshotPath = filepath.Join(engine.cfg.SnapshotDir, name)
		log.Info("distill: snapshot created", "path", report.SnapshotPath)
	}

	return nil
}

// BuildSummaryReport is a fixed dry-run, rule-only convenience wrapper
// over Distill, useful for inspecting what a real run would select.
func (engine *Engine) BuildSummaryReport(ctx context.Context, agents []string) (*RunReport, error) {
	return engine.Distill(ctx, RunConfiguration{
		Agents:        agents,
		MinScore:      0,
		MaxPerAgent:   10,
		Categories:    memory.KeepableCategories,
		DryRun:        true,
		ForceRuleOnly: true,
	})
}
