package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaforge-app/ideaforge-api/internal/application/analyze"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/ai"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

// --- in-memory fakes ---

type fakeKeyRepo struct {
	mu    sync.Mutex
	codes map[string]keys.KeyID
	calls int
}

// Resolve matches exactly, like the real stores after the service-side trim.
func (f *fakeKeyRepo) Resolve(ctx context.Context, code string) (*keys.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if id, ok := f.codes[code]; ok {
		return &keys.AccessKey{ID: id, Code: code}, nil
	}
	return nil, keys.ErrInvalidKey
}

type fakeAnalysisRepo struct {
	mu      sync.Mutex
	seq     int
	records []*analysis.Record
}

func (f *fakeAnalysisRepo) Create(ctx context.Context, keyID keys.KeyID, idea string, data *analysis.Data) (*analysis.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rec := &analysis.Record{
		ID:        analysis.RecordID(fmt.Sprintf("rec-%d", f.seq)),
		KeyID:     keyID,
		Idea:      idea,
		Data:      data,
		CreatedAt: time.Now().Add(time.Duration(f.seq) * time.Millisecond),
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAnalysisRepo) ListRecent(ctx context.Context, keyID keys.KeyID, limit int) ([]*analysis.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > analysis.DefaultHistoryLimit {
		limit = analysis.DefaultHistoryLimit
	}
	out := []*analysis.Record{}
	for _, r := range f.records {
		if r.KeyID == keyID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAnalysisRepo) Delete(ctx context.Context, id analysis.RecordID, requester keys.KeyID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == id {
			if r.KeyID != requester {
				return analysis.ErrForbidden
			}
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return analysis.ErrNotFound
}

type stubGenerator struct {
	mu         sync.Mutex
	completion *ai.Completion
	err        error
	calls      int
}

func (s *stubGenerator) Generate(ctx context.Context, idea string) (*ai.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.completion, nil
}

const stubModelJSON = `{"appName":"Test","scores":{"viability":50,"scalability":50,"complexity":50}}`

func fencedCompletion(nCitations int) *ai.Completion {
	c := &ai.Completion{
		Text:    "```json\n" + stubModelJSON + "\n```",
		Queries: []string{"test query"},
	}
	for i := 0; i < nCitations; i++ {
		c.Citations = append(c.Citations, analysis.Citation{
			URI:   fmt.Sprintf("https://example.com/%d", i),
			Title: fmt.Sprintf("Source %d", i),
		})
	}
	return c
}

type env struct {
	keys     *fakeKeyRepo
	analyses *fakeAnalysisRepo
	gen      *stubGenerator
	server   *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		keys:     &fakeKeyRepo{codes: map[string]keys.KeyID{"VALID-KEY": "key-1", "OTHER-KEY": "key-2"}},
		analyses: &fakeAnalysisRepo{},
		gen:      &stubGenerator{completion: fencedCompletion(4)},
	}
	svc := &analyze.Service{Keys: e.keys, Analyses: e.analyses, Generator: e.gen}
	e.server = httptest.NewServer(NewRouter(svc, Config{}))
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) request(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, e.server.URL+path, nil)
	}
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestAnalyzeEndToEnd(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodPost, "/analyze",
		`{"key":"VALID-KEY","idea":"A meal planning app"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var data analysis.Data
	require.NoError(t, json.Unmarshal(body, &data))
	assert.Equal(t, "Test", data.Identity.Name)
	assert.Len(t, data.Sources.Market, 2)
	assert.Len(t, data.Sources.Competitors, 2)

	// One record persisted for the resolved key, idea trimmed.
	require.Len(t, e.analyses.records, 1)
	assert.Equal(t, keys.KeyID("key-1"), e.analyses.records[0].KeyID)
	assert.Equal(t, "A meal planning app", e.analyses.records[0].Idea)
}

func TestAnalyzePaddedKeyResolves(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodPost, "/analyze",
		`{"key":"  VALID-KEY  ","idea":"A meal planning app"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	require.Len(t, e.analyses.records, 1)
	assert.Equal(t, keys.KeyID("key-1"), e.analyses.records[0].KeyID)
}

func TestAnalyzeSanitizesIdea(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodPost, "/analyze",
		`{"key":"VALID-KEY","idea":"A meal\u0000 planning app\u0001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	require.Len(t, e.analyses.records, 1)
	assert.Equal(t, "A meal planning app", e.analyses.records[0].Idea)
}

func TestAnalyzeShortIdeaNoSideEffects(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/analyze", `{"key":"VALID-KEY","idea":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Zero(t, e.keys.calls)
	assert.Zero(t, e.gen.calls)
	assert.Empty(t, e.analyses.records)
}

func TestAnalyzeInvalidKey(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPost, "/analyze", `{"key":"WRONG","idea":"A meal planning app"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, e.gen.calls)
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	e := newEnv(t)
	e.gen.err = ai.ErrUpstream

	resp, body := e.request(t, http.MethodPost, "/analyze", `{"key":"VALID-KEY","idea":"A meal planning app"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, e.analyses.records)

	var errBody map[string]any
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.NotContains(t, errBody, "detail") // no internals without debug
}

func TestAnalyzeParseFailure(t *testing.T) {
	e := newEnv(t)
	e.gen.completion = &ai.Completion{Text: "definitely not json"}

	resp, _ := e.request(t, http.MethodPost, "/analyze", `{"key":"VALID-KEY","idea":"A meal planning app"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, e.analyses.records)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	resp, body := e.request(t, http.MethodPost, "/login", `{"key":"VALID-KEY"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Valid bool   `json:"valid"`
		KeyID string `json:"keyId"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Valid)
	assert.Equal(t, "key-1", out.KeyID)

	resp, _ = e.request(t, http.MethodPost, "/login", `{"key":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.request(t, http.MethodPost, "/login", `{"key":"WRONG"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHistoryListsNewestFirstCappedAt20(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 25; i++ {
		_, err := e.analyses.Create(context.Background(), "key-1", fmt.Sprintf("idea %d", i), &analysis.Data{})
		require.NoError(t, err)
	}

	resp, body := e.request(t, http.MethodGet, "/analyses?key=VALID-KEY", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []analysis.Record
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 20)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "order must be non-increasing")
	}
}

func TestHistoryRequiresKey(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodGet, "/analyses", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/analyses?key=WRONG", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteOwnershipEnforced(t *testing.T) {
	e := newEnv(t)
	rec, err := e.analyses.Create(context.Background(), "key-1", "owned idea", &analysis.Data{})
	require.NoError(t, err)

	// Another key's delete attempt is forbidden and leaves the record.
	resp, _ := e.request(t, http.MethodDelete, "/analyses?key=OTHER-KEY&id="+string(rec.ID), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body := e.request(t, http.MethodGet, "/analyses?key=VALID-KEY", "")
	var list []analysis.Record
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	// The owner's delete succeeds.
	resp, body = e.request(t, http.MethodDelete, "/analyses?key=VALID-KEY&id="+string(rec.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Empty(t, e.analyses.records)
}

func TestDeleteUnknownRecord(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodDelete, "/analyses?key=VALID-KEY&id=nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteRequiresID(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodDelete, "/analyses?key=VALID-KEY", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.request(t, http.MethodPut, "/analyses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPreflightAllowedForDevOrigin(t *testing.T) {
	e := newEnv(t)

	req, err := http.NewRequest(http.MethodOptions, e.server.URL+"/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDebugDetailGatedByConfig(t *testing.T) {
	keysRepo := &fakeKeyRepo{codes: map[string]keys.KeyID{"VALID-KEY": "key-1"}}
	gen := &stubGenerator{completion: &ai.Completion{Text: "broken output"}}
	svc := &analyze.Service{Keys: keysRepo, Analyses: &fakeAnalysisRepo{}, Generator: gen}
	server := httptest.NewServer(NewRouter(svc, Config{Debug: true}))
	defer server.Close()

	resp, err := http.Post(server.URL+"/analyze", "application/json",
		strings.NewReader(`{"key":"VALID-KEY","idea":"A meal planning app"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "detail")
}
