package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ToolClient calls the time-entry tool server over HTTP. The agent never
// talks to the upstream API directly; every tool call goes through the
// server so the same validation and error mapping applies.
type ToolClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewToolClient(baseURL string) *ToolClient {
	return &ToolClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// CallTool posts raw JSON arguments to the named tool endpoint and returns
// the raw JSON response. Tool names map 1:1 onto /api/v1 routes.
func (tc *ToolClient) CallTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	return tc.post(ctx, "/api/v1/"+name, args)
}

// ResolveDate resolves a date word through the tool server.
func (tc *ToolClient) ResolveDate(ctx context.Context, word string) (string, error) {
	body, err := json.Marshal(map[string]string{"date": word})
	if err != nil {
		return "", err
	}
	raw, err := tc.post(ctx, "/api/v1/resolve_date", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrap(err, "decode resolve_date response")
	}
	return resp.Date, nil
}

// LookupUser resolves a user name to its display form, for the
// confirmation preview.
func (tc *ToolClient) LookupUser(ctx context.Context, name string) (string, error) {
	return tc.lookupName(ctx, "/api/v1/lookup/user/"+url.PathEscape(name))
}

// LookupWorkspace resolves a project name for the confirmation preview.
func (tc *ToolClient) LookupWorkspace(ctx context.Context, name string) (string, error) {
	return tc.lookupName(ctx, "/api/v1/lookup/workspace/"+url.PathEscape(name))
}

func (tc *ToolClient) lookupName(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	raw, err := tc.roundTrip(req)
	if err != nil {
		return "", err
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrap(err, "decode lookup response")
	}
	return resp.Name, nil
}

func (tc *ToolClient) post(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.roundTrip(req)
}

func (tc *ToolClient) roundTrip(req *http.Request) (json.RawMessage, error) {
	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "tool server request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read tool server response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("tool server: %s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("tool server: status %d", resp.StatusCode)
	}
	return raw, nil
}
