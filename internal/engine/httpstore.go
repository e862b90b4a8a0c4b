package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chefdeck/internal/core/id"
	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
)

// HTTPStore implements Store over the server's JSON API, adding the tenant
// header to every request.
type HTTPStore struct {
	baseURL string
	botID   string
	client  *http.Client
}

// NewHTTPStore creates a store client for the given server and tenant.
func NewHTTPStore(baseURL, botID string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		botID:   botID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Store = (*HTTPStore)(nil)

// FetchCycles returns all cycles for the tenant.
func (s *HTTPStore) FetchCycles(ctx context.Context) ([]*counting.Cycle, error) {
	var cycles []*counting.Cycle
	if err := s.do(ctx, http.MethodGet, "/api/inventory", nil, &cycles); err != nil {
		return nil, err
	}
	return cycles, nil
}

// SaveCycle upserts a whole cycle document.
func (s *HTTPStore) SaveCycle(ctx context.Context, c *counting.Cycle) error {
	return s.do(ctx, http.MethodPost, "/api/inventory/cycle", c, nil)
}

// Lock requests the sheet lock. A 409 is decoded into LockResult, not an
// error: being beaten to a sheet is a normal outcome.
func (s *HTTPStore) Lock(ctx context.Context, cycleID, sheetID id.ID, user counting.LockHolder) (LockResult, error) {
	body := map[string]any{
		"cycleId": cycleID,
		"sheetId": sheetID,
		"user":    user,
	}

	resp, err := s.request(ctx, http.MethodPost, "/api/inventory/lock", body)
	if err != nil {
		return LockResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict:
		var lr struct {
			Success  bool                 `json:"success"`
			LockedBy *counting.LockHolder `json:"lockedBy"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
			return LockResult{}, fmt.Errorf("decode lock response: %w", err)
		}
		return LockResult{Granted: lr.Success, Holder: lr.LockedBy}, nil
	default:
		return LockResult{}, s.apiError(resp)
	}
}

// Unlock releases the sheet lock.
func (s *HTTPStore) Unlock(ctx context.Context, cycleID, sheetID id.ID) error {
	body := map[string]any{"cycleId": cycleID, "sheetId": sheetID}
	return s.do(ctx, http.MethodPost, "/api/inventory/unlock", body, nil)
}

// FetchCatalog returns the tenant's product reference list.
func (s *HTTPStore) FetchCatalog(ctx context.Context) ([]catalog.Item, error) {
	var items []catalog.Item
	if err := s.do(ctx, http.MethodGet, "/api/inventory/global-items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UploadCatalog bulk-imports catalog items (manage view).
func (s *HTTPStore) UploadCatalog(ctx context.Context, items []catalog.Item) error {
	body := map[string]any{"items": items}
	return s.do(ctx, http.MethodPost, "/api/inventory/global-items/upsert", body, nil)
}

// ClearArchive deletes all finalized cycles (admin).
func (s *HTTPStore) ClearArchive(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, "/api/inventory/archive/all", nil, nil)
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := s.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *HTTPStore) request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	u, err := url.JoinPath(s.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.botID != "" {
		req.Header.Set("X-Bot-ID", s.botID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (s *HTTPStore) apiError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "" {
		return fmt.Errorf("api error %d: %s: %s", resp.StatusCode, body.Code, body.Message)
	}
	return fmt.Errorf("api error %d", resp.StatusCode)
}
