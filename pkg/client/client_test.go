package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiStub is a minimal server double with a mutable record list.
type apiStub struct {
	mu        sync.Mutex
	validKey  string
	records   []Record
	deleteErr int // non-zero forces this status on DELETE
	listCalls int
}

func (s *apiStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Key != s.validKey {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid key"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "keyId": "key-1"})
	})

	mux.HandleFunc("GET /analyses", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listCalls++
		_ = json.NewEncoder(w).Encode(s.records)
	})

	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec := Record{ID: "rec-new", KeyID: "key-1", Idea: "new idea", Data: json.RawMessage(`{"ok":true}`)}
		s.records = append([]Record{rec}, s.records...)
		_, _ = w.Write(rec.Data)
	})

	mux.HandleFunc("DELETE /analyses", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.deleteErr != 0 {
			w.WriteHeader(s.deleteErr)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
			return
		}
		id := r.URL.Query().Get("id")
		kept := s.records[:0]
		for _, rec := range s.records {
			if rec.ID != id {
				kept = append(kept, rec)
			}
		}
		s.records = kept
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	return mux
}

func newStub(t *testing.T) (*apiStub, *httptest.Server) {
	t.Helper()
	stub := &apiStub{
		validKey: "VALID-KEY",
		records:  []Record{{ID: "rec-1", KeyID: "key-1", Idea: "old idea"}},
	}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)
	return stub, server
}

func TestLoginPersistsSessionAndFetchesHistory(t *testing.T) {
	_, server := newStub(t)
	sessionPath := filepath.Join(t.TempDir(), "session")

	c := New(server.URL, sessionPath)
	assert.False(t, c.IsAuthenticated())

	keyID, err := c.Login(context.Background(), "VALID-KEY")
	require.NoError(t, err)
	assert.Equal(t, "key-1", keyID)
	assert.True(t, c.IsAuthenticated())

	// History is populated during login, no separate refresh needed.
	require.Len(t, c.History(), 1)
	assert.Equal(t, "rec-1", c.History()[0].ID)

	b, err := os.ReadFile(sessionPath)
	require.NoError(t, err)
	assert.Equal(t, "VALID-KEY", string(b))
}

func TestNewRestoresSavedSession(t *testing.T) {
	_, server := newStub(t)
	sessionPath := filepath.Join(t.TempDir(), "session")
	require.NoError(t, os.WriteFile(sessionPath, []byte("VALID-KEY\n"), 0o600))

	c := New(server.URL, sessionPath)
	assert.True(t, c.IsAuthenticated())

	require.NoError(t, c.RefreshHistory(context.Background()))
	assert.Len(t, c.History(), 1)
}

func TestLoginRejectedKeyLeavesClientUnauthenticated(t *testing.T) {
	_, server := newStub(t)

	c := New(server.URL, "")
	_, err := c.Login(context.Background(), "WRONG")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, c.IsAuthenticated())
}

func TestAnalyzeRefetchesHistory(t *testing.T) {
	stub, server := newStub(t)

	c := New(server.URL, "")
	_, err := c.Login(context.Background(), "VALID-KEY")
	require.NoError(t, err)
	callsAfterLogin := stub.listCalls

	data, err := c.Analyze(context.Background(), "new idea")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	assert.Greater(t, stub.listCalls, callsAfterLogin)
	require.Len(t, c.History(), 2)
	assert.Equal(t, "rec-new", c.History()[0].ID)
}

func TestDeleteRemovesLocallyOnlyAfterServerConfirms(t *testing.T) {
	stub, server := newStub(t)

	c := New(server.URL, "")
	_, err := c.Login(context.Background(), "VALID-KEY")
	require.NoError(t, err)
	require.Len(t, c.History(), 1)

	// A refused delete leaves the cached entry in place.
	stub.deleteErr = http.StatusForbidden
	err = c.Delete(context.Background(), "rec-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, c.History(), 1)

	stub.deleteErr = 0
	require.NoError(t, c.Delete(context.Background(), "rec-1"))
	assert.Empty(t, c.History())
}

func TestLogoutClearsSessionAndCache(t *testing.T) {
	_, server := newStub(t)
	sessionPath := filepath.Join(t.TempDir(), "session")

	c := New(server.URL, sessionPath)
	_, err := c.Login(context.Background(), "VALID-KEY")
	require.NoError(t, err)

	c.Logout()
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.History())
	_, err = os.Stat(sessionPath)
	assert.True(t, os.IsNotExist(err))

	_, err = c.Analyze(context.Background(), "any idea")
	assert.Error(t, err)
}
