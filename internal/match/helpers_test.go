package match

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadPayload(t *testing.T) map[string]any {
	t.Helper()

	data, err := os.ReadFile("testdata/request.json")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func encode(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func loadRequest(t *testing.T) *MatchRequest {
	t.Helper()

	req, err := ParseRequest(encode(t, loadPayload(t)))
	require.NoError(t, err)
	return req
}

func object(t *testing.T, parent map[string]any, key string) map[string]any {
	t.Helper()

	child, ok := parent[key].(map[string]any)
	require.Truef(t, ok, "%s is not an object", key)
	return child
}

func recipientAt(t *testing.T, payload map[string]any, idx int) map[string]any {
	t.Helper()

	list, ok := payload["eligible_recipients"].([]any)
	require.True(t, ok)
	recipient, ok := list[idx].(map[string]any)
	require.True(t, ok)
	return recipient
}

type stubReasoner struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	block    bool
}

func (s *stubReasoner) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.response, s.err
}

func (s *stubReasoner) Model() string { return "stub-model" }

func (s *stubReasoner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]map[string]any
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]map[string]any{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (map[string]any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	raw, ok := c.entries[key]
	return raw, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, raw map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	decisions []Decision
}

func (p *recordingPublisher) Publish(_ context.Context, decision Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, decision)
	return nil
}
