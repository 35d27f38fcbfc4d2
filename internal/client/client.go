// Package client is a small HTTP client for the knowledge context's
// REST surface, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppriyankuu/knowledgebase/internal/api"
)

// Client talks to a single node's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8080").
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PutInteger writes an INTEGER variable.
func (c *Client) PutInteger(ctx context.Context, name string, v int64) error {
	return c.do(ctx, http.MethodPut, "/kv/"+name, api.PutRequest{Type: "integer", Int: v}, nil)
}

// PutDouble writes a DOUBLE variable.
func (c *Client) PutDouble(ctx context.Context, name string, v float64) error {
	return c.do(ctx, http.MethodPut, "/kv/"+name, api.PutRequest{Type: "double", Dbl: v}, nil)
}

// PutString writes a STRING variable.
func (c *Client) PutString(ctx context.Context, name string, v string) error {
	return c.do(ctx, http.MethodPut, "/kv/"+name, api.PutRequest{Type: "string", Str: v}, nil)
}

// PutIntegerArray writes an INTEGER_ARRAY variable.
func (c *Client) PutIntegerArray(ctx context.Context, name string, v []int64) error {
	return c.do(ctx, http.MethodPut, "/kv/"+name, api.PutRequest{Type: "integer_array", IntArr: v}, nil)
}

// PutDoubleArray writes a DOUBLE_ARRAY variable.
func (c *Client) PutDoubleArray(ctx context.Context, name string, v []float64) error {
	return c.do(ctx, http.MethodPut, "/kv/"+name, api.PutRequest{Type: "double_array", DblArr: v}, nil)
}

// Record is the client-side view of a single variable, matching the
// server's recordView JSON shape.
type Record struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Clock   uint64 `json:"clock"`
	Quality uint32 `json:"quality"`
	Value   any    `json:"value"`
}

// Get reads a single variable.
func (c *Client) Get(ctx context.Context, name string) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, "/kv/"+name, nil, &rec)
	return rec, err
}

// Delete removes a variable.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/kv/"+name, nil, nil)
}

// Inc increments a numeric variable.
func (c *Client) Inc(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/kv/"+name+"/inc", nil, nil)
}

// Dec decrements a numeric variable.
func (c *Client) Dec(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/kv/"+name+"/dec", nil, nil)
}

// GetIndex reads element i of an array variable.
func (c *Client) GetIndex(ctx context.Context, name string, i int) (Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/kv/%s/index/%d", name, i), nil, &rec)
	return rec, err
}

// PutIndex writes element i of an array variable. kind is "integer" or
// "double".
func (c *Client) PutIndex(ctx context.Context, name string, i int, value float64, kind string) error {
	path := fmt.Sprintf("/kv/%s/index/%d", name, i)
	if kind == "double" {
		path += "?kind=double"
	}
	return c.do(ctx, http.MethodPut, path, map[string]float64{"value": value}, nil)
}

// ScanPrefix lists every variable whose name starts with prefix.
func (c *Client) ScanPrefix(ctx context.Context, prefix string) ([]Record, error) {
	var out struct {
		Results []Record `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/scan/prefix/"+prefix, nil, &out)
	return out.Results, err
}

// ExpandStatement expands a {name}-reference statement server-side.
func (c *Client) ExpandStatement(ctx context.Context, statement string) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	err := c.do(ctx, http.MethodGet, "/scan/expand?s="+statement, nil, &out)
	return out.Result, err
}

// GetClock returns the server's Lamport clock.
func (c *Client) GetClock(ctx context.Context) (uint64, error) {
	var out struct {
		Clock uint64 `json:"clock"`
	}
	err := c.do(ctx, http.MethodGet, "/control/clock", nil, &out)
	return out.Clock, err
}

// Wait blocks server-side until a change is signalled or timeout elapses.
func (c *Client) Wait(ctx context.Context, timeout time.Duration) error {
	path := fmt.Sprintf("/control/wait?timeout_ms=%d", timeout.Milliseconds())
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Signal wakes any waiter blocked in the server's Wait.
func (c *Client) Signal(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/control/signal", nil, nil)
}

// SaveCheckpoint asks the server to write its modified-set to path.
func (c *Client) SaveCheckpoint(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/control/checkpoint?path="+path, nil, nil)
}

// SaveSnapshot asks the server to write a full checkpoint to path.
func (c *Client) SaveSnapshot(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/control/snapshot?path="+path, nil, nil)
}

// ClusterNodes lists the server's known replication peers.
func (c *Client) ClusterNodes(ctx context.Context) ([]map[string]string, error) {
	var out struct {
		Nodes []map[string]string `json:"nodes"`
	}
	err := c.do(ctx, http.MethodGet, "/cluster/nodes", nil, &out)
	return out.Nodes, err
}

// GetRaw performs a raw GET and returns the response body verbatim, for
// endpoints not worth a typed wrapper (debugging, ad-hoc admin calls).
func (c *Client) GetRaw(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	return string(body), err
}
