package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/theapemachine/goldmine/pkg/memory"
)

const (
	// llmPayloadLimit caps how much of a record's text goes into the
	// prompt for one chunk entry.
	llmPayloadLimit = 500

	// chunkPace is the fixed delay between consecutive chunk calls.
	// It is pacing, not backoff: it always applies, success or not,
	// except after the final chunk.
	chunkPace = 500 * time.Millisecond
)

// systemPrompt carries the scoring task, the category taxonomy, and the
// rubric bands the service must score against.
var systemPrompt = fmt.Sprintf(`You are a memory curator for a team of autonomous agents.
Score each memory below for its long-term value.

Categories (use exactly one per memory):
%s

Scoring rubric:
90-100 critical knowledge, must keep
70-89  valuable, keep
50-69  useful context
30-49  low value
0-29   noise, discard

Respond with ONLY a JSON array, one object per memory:
[{"index": 0, "score": 85, "category": "trading_win_pattern", "reasoning": "..."}]`,
	categoryList())

func categoryList() string {
	names := make([]string, 0, len(memory.AllCategories))
	for _, c := range memory.AllCategories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// llmVerdict is one entry of the expected response array.
type llmVerdict struct {
	Index     int     `json:"index"`
	Score     float64 `json:"score"`
	Category  string  `json:"category"`
	Reasoning string  `json:"reasoning"`
}

// LLM scores records in batched chat-completion calls against an
// OpenAI-compatible endpoint. Any chunk that cannot be scored remotely
// falls back to the rule-based scorer; a run never fails because of the
// external service.
type LLM struct {
	client    *openai.Client
	model     string
	batchSize int
	pace      time.Duration
	fallback  *Heuristic
}

// NewLLM builds the batched scorer. batchSize must be >= 1.
func NewLLM(endpoint, apiKey, model string, batchSize int) *LLM {
	if batchSize < 1 {
		batchSize = 1
	}

	// No transport-level retries: a failed chunk falls back to the
	// rule scorer instead.
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(endpoint),
		option.WithMaxRetries(0),
	)

	return &LLM{
		client:    &client,
		model:     model,
		batchSize: batchSize,
		pace:      chunkPace,
		fallback:  NewHeuristic(),
	}
}

// ScoreBatch partitions records into consecutive chunks of at most the
// configured batch size and scores each chunk with one external call.
// Output order matches input order. Chunks run strictly sequentially
// with a fixed pacing delay between them.
func (s *LLM) ScoreBatch(ctx context.Context, records []memory.Record) ([]memory.ScoredRecord, error) {
	scored := make([]memory.ScoredRecord, 0, len(records))
	total := (len(records) + s.batchSize - 1) / s.batchSize

	for chunkIdx := 0; chunkIdx*s.batchSize < len(records); chunkIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := chunkIdx * s.batchSize
		end := min(start+s.batchSize, len(records))
		chunk := records[start:end]

		results, err := s.scoreChunk(ctx, chunk)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			log.Warn("llm: chunk failed, using rule fallback", "chunk", chunkIdx, "records", len(chunk), "error", err)
			results = s.fallbackChunk(chunk)
		}

		scored = append(scored, results...)
		log.Info("llm: chunk scored", "chunk", chunkIdx+1, "of", total, "progress", fmt.Sprintf("%.0f%%", float64(chunkIdx+1)/float64(total)*100))

		if end < len(records) {
			select {
			case <-time.After(s.pace):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return scored, nil
}

// scoreChunk issues one completion call for the chunk and matches the
// returned verdicts back to the records by index.
func (s *LLM) scoreChunk(ctx context.Context, chunk []memory.Record) ([]memory.ScoredRecord, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(s.chunkPayload(chunk)),
		},
		Temperature: openai.Float(0.1),
	})

	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	var verdicts []llmVerdict

	raw := stripFence(completion.Choices[0].Message.Content)

	if err := json.Unmarshal([]byte(raw), &verdicts); err != nil {
		return nil, fmt.Errorf("parse verdicts: %w", err)
	}

	byIndex := make(map[int]llmVerdict, len(verdicts))
	for _, v := range verdicts {
		byIndex[v.Index] = v
	}

	scored := make([]memory.ScoredRecord, 0, len(chunk))

	for idx, rec := range chunk {
		verdict, ok := byIndex[idx]

		if !ok {
			// One missing entry only costs that record, not the chunk.
			log.Warn("llm: verdict missing, using rule fallback", "index", idx, "record", rec.ID)
			scored = append(scored, s.fallbackOne(rec))
			continue
		}

		scored = append(scored, s.apply(rec, verdict))
	}

	return scored, nil
}

// apply converts one verdict into a ScoredRecord, clamping the score
// and validating the category against the closed set.
func (s *LLM) apply(rec memory.Record, verdict llmVerdict) memory.ScoredRecord {
	score := 50
	if !math.IsNaN(verdict.Score) && !math.IsInf(verdict.Score, 0) {
		score = memory.ClampScore(int(verdict.Score))
	}

	category := memory.Category(verdict.Category)
	if !memory.ValidCategory(category) {
		category = memory.CategoryNoise
	}

	return memory.ScoredRecord{
		Record:    rec,
		Score:     score,
		Category:  category,
		Tags:      []string{string(category), "llm-scored"},
		Method:    memory.MethodLLM,
		Reasoning: verdict.Reasoning,
	}
}

// chunkPayload renders the chunk as one line per record.
func (s *LLM) chunkPayload(chunk []memory.Record) string {
	var builder strings.Builder

	for idx, rec := range chunk {
		text := rec.Text
		if runes := []rune(text); len(runes) > llmPayloadLimit {
			text = string(runes[:llmPayloadLimit])
		}

		fmt.Fprintf(&builder, "[%d] group=%s ns=%s | %s\n", idx, rec.Agent, rec.Namespace, text)
	}

	return builder.String()
}

func (s *LLM) fallbackChunk(chunk []memory.Record) []memory.ScoredRecord {
	scored := make([]memory.ScoredRecord, 0, len(chunk))

	for _, rec := range chunk {
		scored = append(scored, s.fallbackOne(rec))
	}

	return scored
}

func (s *LLM) fallbackOne(rec memory.Record) memory.ScoredRecord {
	fallback := s.fallback.Score(rec)
	fallback.Tags = append(fallback.Tags, "llm-fallback")

	return fallback
}

// stripFence removes a surrounding markdown code fence, if any, so the
// verdict array parses whether or not the model wrapped it.
func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
