// Package client is the session and history manager for the analyzer API.
// It holds the authenticated key (persisted across restarts via a session
// file), keeps a local cache of the key's recent analyses, and enforces the
// cache contract: the list is refetched after every successful analysis, and
// an entry is removed locally only after the server confirms its deletion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record mirrors the server's analysis record. Data is kept opaque; consumers
// decode the parts they render.
type Record struct {
	ID        string          `json:"id"`
	KeyID     string          `json:"keyId"`
	Idea      string          `json:"idea"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	sessionPath string

	mu      sync.Mutex
	key     string
	keyID   string
	history []Record
}

// New builds a client. sessionPath may be empty to disable persistence; when
// set, a previously saved key is restored (but not revalidated until the next
// server call).
func New(baseURL, sessionPath string) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 3 * time.Minute},
		sessionPath: sessionPath,
	}
	if sessionPath != "" {
		if b, err := os.ReadFile(sessionPath); err == nil && len(b) > 0 {
			c.key = string(bytes.TrimSpace(b))
		}
	}
	return c
}

// IsAuthenticated reports whether a key is held. It does not consult the
// server.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key != ""
}

// Login validates the code against the server, persists it on success, and
// eagerly fetches the key's history.
func (c *Client) Login(ctx context.Context, code string) (string, error) {
	var resp struct {
		Valid bool   `json:"valid"`
		KeyID string `json:"keyId"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"key": code}, &resp)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.key = code
	c.keyID = resp.KeyID
	c.mu.Unlock()

	if c.sessionPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0o700); err == nil {
			_ = os.WriteFile(c.sessionPath, []byte(code), 0o600)
		}
	}

	if err := c.RefreshHistory(ctx); err != nil {
		return resp.KeyID, err
	}
	return resp.KeyID, nil
}

// Logout drops the session and the local cache.
func (c *Client) Logout() {
	c.mu.Lock()
	c.key = ""
	c.keyID = ""
	c.history = nil
	c.mu.Unlock()

	if c.sessionPath != "" {
		_ = os.Remove(c.sessionPath)
	}
}

// Analyze submits one idea. One call, one terminal state; the server does not
// retry and neither does this client. On success the history cache is
// refetched so it reflects server truth including the new record.
func (c *Client) Analyze(ctx context.Context, idea string) (json.RawMessage, error) {
	key, err := c.currentKey()
	if err != nil {
		return nil, err
	}

	var data json.RawMessage
	err = c.do(ctx, http.MethodPost, "/analyze", map[string]string{"key": key, "idea": idea}, &data)
	if err != nil {
		return nil, err
	}

	if err := c.RefreshHistory(ctx); err != nil {
		return data, err
	}
	return data, nil
}

// History returns a copy of the cached history, newest first.
func (c *Client) History() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.history))
	copy(out, c.history)
	return out
}

// RefreshHistory refetches the history list from the server.
func (c *Client) RefreshHistory(ctx context.Context) error {
	key, err := c.currentKey()
	if err != nil {
		return err
	}

	var list []Record
	path := "/analyses?key=" + url.QueryEscape(key)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return err
	}

	c.mu.Lock()
	c.history = list
	c.mu.Unlock()
	return nil
}

// Delete removes one record. The local entry is dropped only after the server
// confirms, so a failed delete never desyncs the cache.
func (c *Client) Delete(ctx context.Context, id string) error {
	key, err := c.currentKey()
	if err != nil {
		return err
	}

	path := "/analyses?key=" + url.QueryEscape(key) + "&id=" + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	kept := c.history[:0]
	for _, rec := range c.history {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	c.history = kept
	c.mu.Unlock()
	return nil
}

func (c *Client) currentKey() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == "" {
		return "", fmt.Errorf("not authenticated")
	}
	return c.key, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
