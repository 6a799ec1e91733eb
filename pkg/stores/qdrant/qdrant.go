/*
Package qdrant is a thin HTTP client for the subset of the Qdrant API the
distillation pipeline needs: paginated reads, collection management,
chunked upserts, and snapshots.
*/
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/theapemachine/goldmine/pkg/memory"
)

const (
	// scrollPageSize is the page size for cursor-based reads.
	scrollPageSize = 256

	// upsertChunkSize bounds one upsert request. An upsert is atomic
	// per chunk only, not across the whole set.
	upsertChunkSize = 128
)

// Client wraps a Qdrant HTTP endpoint.
type Client struct {
	Endpoint   string // e.g. http://localhost:6333
	httpClient *http.Client
}

// New returns a Client with sane defaults.
func New(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// scrollPoint mirrors one point of a scroll response.
type scrollPoint struct {
	ID      any            `json:"id"`
	Payload map[string]any `json:"payload"`
	Vector  []float32      `json:"vector"`
}

// FetchAll reads every record for the given agent (and optional
// namespace) from the collection, following the scroll cursor until the
// store reports no next page. No ordering is guaranteed.
func (client *Client) FetchAll(ctx context.Context, collection, agent, namespace string) ([]memory.Record, error) {
	var (
		records []memory.Record
		offset  json.RawMessage
	)

	for {
		body := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  true,
		}

		var must []map[string]any
		if agent != "" {
			must = append(must, map[string]any{
				"key":   "agentId",
				"match": map[string]any{"value": agent},
			})
		}
		if namespace != "" {
			must = append(must, map[string]any{
				"key":   "namespace",
				"match": map[string]any{"value": namespace},
			})
		}
		if len(must) > 0 {
			body["filter"] = map[string]any{"must": must}
		}

		if offset != nil {
			body["offset"] = offset
		}

		var out struct {
			Result struct {
				Points         []scrollPoint   `json:"points"`
				NextPageOffset json.RawMessage `json:"next_page_offset"`
			} `json:"result"`
		}

		if err := client.do(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", collection), body, &out); err != nil {
			return nil, fmt.Errorf("scroll %s: %w", collection, err)
		}

		for _, point := range out.Result.Points {
			records = append(records, recordFromPoint(point))
		}

		if out.Result.NextPageOffset == nil || string(out.Result.NextPageOffset) == "null" {
			break
		}

		offset = out.Result.NextPageOffset
	}

	return records, nil
}

// recordFromPoint converts a scroll point into a Record.
func recordFromPoint(point scrollPoint) memory.Record {
	rec := memory.Record{
		ID:        fmt.Sprintf("%v", point.ID),
		Embedding: point.Vector,
	}

	if payload := point.Payload; payload != nil {
		if text, ok := payload["text"].(string); ok {
			rec.Text = text
		}
		if agent, ok := payload["agentId"].(string); ok {
			rec.Agent = agent
		}
		if ns, ok := payload["namespace"].(string); ok {
			rec.Namespace = ns
		}
		if user, ok := payload["userId"].(string); ok {
			rec.UserID = user
		}
		if created, ok := payload["createdAt"].(float64); ok {
			rec.CreatedAt = int64(created)
		}
	}

	return rec
}

// CollectionGeometry returns the vector configuration of a collection
// and whether the collection exists at all.
func (client *Client) CollectionGeometry(ctx context.Context, collection string) (memory.VectorGeometry, bool, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/collections/%s", client.Endpoint, collection),
		nil,
	)
	if err != nil {
		return memory.VectorGeometry{}, false, err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return memory.VectorGeometry{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return memory.VectorGeometry{}, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return memory.VectorGeometry{}, false, fmt.Errorf("qdrant: collection info status %s", resp.Status)
	}

	var out struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return memory.VectorGeometry{}, false, fmt.Errorf("qdrant: decode collection info: %w", err)
	}

	geom := memory.VectorGeometry{
		Size:     out.Result.Config.Params.Vectors.Size,
		Distance: out.Result.Config.Params.Vectors.Distance,
	}

	if geom.Size == 0 {
		geom = memory.DefaultGeometry
	}

	return geom, true, nil
}

// EnsureCollection creates the collection with the given geometry if it
// does not already exist. Existing collections are left untouched.
func (client *Client) EnsureCollection(ctx context.Context, collection string, geom memory.VectorGeometry) error {
	_, exists, err := client.CollectionGeometry(ctx, collection)

	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     geom.Size,
			"distance": geom.Distance,
		},
	}

	if err := client.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s", collection), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}

	return nil
}

// Upsert writes scored records as points in chunks of at most
// upsertChunkSize. Point IDs are derived deterministically from the
// source record IDs, so repeating a run overwrites instead of
// duplicating.
func (client *Client) Upsert(ctx context.Context, collection string, records []memory.ScoredRecord) error {
	for start := 0; start < len(records); start += upsertChunkSize {
		end := min(start+upsertChunkSize, len(records))

		points := make([]map[string]any, 0, end-start)

		for _, rec := range records[start:end] {
			points = append(points, pointFromRecord(rec))
		}

		body := map[string]any{"points": points}

		if err := client.do(ctx, http.MethodPut,
			fmt.Sprintf("/collections/%s/points?wait=true", collection), body, nil); err != nil {
			return fmt.Errorf("upsert %d points into %s: %w", end-start, collection, err)
		}
	}

	return nil
}

// pointFromRecord builds the Qdrant point for one scored record.
func pointFromRecord(rec memory.ScoredRecord) map[string]any {
	point := map[string]any{
		"id": pointID(rec.ID),
		"payload": map[string]any{
			"sourceId":  rec.ID,
			"text":      rec.Text,
			"agentId":   rec.Agent,
			"namespace": rec.Namespace,
			"userId":    rec.UserID,
			"createdAt": rec.CreatedAt,
			"score":     rec.Score,
			"category":  string(rec.Category),
			"tags":      rec.Tags,
			"summary":   rec.Summary,
			"method":    string(rec.Method),
			"reasoning": rec.Reasoning,
		},
	}

	if len(rec.Embedding) > 0 {
		point["vector"] = rec.Embedding
	}

	return point
}

// pointID maps an opaque record identifier onto a valid Qdrant point ID.
// Qdrant only accepts UUIDs or unsigned integers, so anything else is
// hashed into a stable UUIDv5.
func pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// Snapshot triggers a snapshot of the collection and returns its name.
func (client *Client) Snapshot(ctx context.Context, collection string) (string, error) {
	var out struct {
		Result struct {
			Name string `json:"name"`
		} `json:"result"`
	}

	if err := client.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/snapshots", collection), nil, &out); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", collection, err)
	}

	return out.Result.Name, nil
}

// ListSnapshots returns the names of all snapshots of the collection.
func (client *Client) ListSnapshots(ctx context.Context, collection string) ([]string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/collections/%s/snapshots", client.Endpoint, collection),
		nil,
	)
	if err != nil {
		return nil, err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant: list snapshots status %s", resp.Status)
	}

	var out struct {
		Result []struct {
			Name string `json:"name"`
		} `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("qdrant: decode snapshots: %w", err)
	}

	names := make([]string, 0, len(out.Result))
	for _, snap := range out.Result {
		names = append(names, snap.Name)
	}

	return names, nil
}

// do sends one JSON request and optionally decodes the JSON response.
func (client *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.Endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: unexpected status %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
