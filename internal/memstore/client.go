package memstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/lazypower/salience/internal/metrics"
	"github.com/lazypower/salience/internal/query"
)

// requestTimeout is the hard ceiling on any single store call. Timeouts
// degrade to empty results; duplicates are worse than drops, so nothing
// retries.
const requestTimeout = 5 * time.Second

// Client calls the remote memory store's retrieve_memory tool. It never
// returns an error to callers: every failure mode (network, timeout, RPC
// error, unparseable payload) is logged and surfaced as an empty result set
// so one bad query cannot abort an update.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics attaches retrieval-error counting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a store client. insecure disables TLS verification for
// deployments fronting the store with a self-signed certificate.
func NewClient(endpoint, apiKey string, insecure bool, log zerolog.Logger, opts ...Option) *Client {
	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	c := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		log: log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string        `json:"name"`
	Arguments toolArguments `json:"arguments"`
}

type toolArguments struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type rpcResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Retrieve issues one retrieve_memory call for q and returns parsed records,
// with anything in excludeHashes filtered out. Failures return nil.
func (c *Client) Retrieve(ctx context.Context, q query.Query, excludeHashes map[string]struct{}) []Memory {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID(),
		Method:  "tools/call",
		Params: rpcParams{
			Name:      "retrieve_memory",
			Arguments: toolArguments{Query: q.Query, Limit: q.Limit},
		},
	})
	if err != nil {
		c.fail(q, fmt.Errorf("marshal request: %w", err))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/mcp", bytes.NewReader(body))
	if err != nil {
		c.fail(q, fmt.Errorf("create request: %w", err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.fail(q, fmt.Errorf("memory store: %w", err))
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail(q, fmt.Errorf("read response: %w", err))
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		c.fail(q, fmt.Errorf("memory store status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
		return nil
	}

	var rpc rpcResponse
	if err := json.Unmarshal(respBody, &rpc); err != nil {
		c.fail(q, fmt.Errorf("decode rpc envelope: %w", err))
		return nil
	}
	if rpc.Error != nil {
		c.fail(q, fmt.Errorf("rpc error %d: %s", rpc.Error.Code, rpc.Error.Message))
		return nil
	}
	if rpc.Result == nil || len(rpc.Result.Content) == 0 {
		c.log.Debug().Str("query", q.Query).Msg("memory store returned no content")
		return nil
	}

	memories, err := parsePayload(rpc.Result.Content[0].Text)
	if err != nil {
		c.fail(q, err)
		return nil
	}

	var kept []Memory
	for _, m := range memories {
		if m.ContentHash == "" {
			continue
		}
		if _, loaded := excludeHashes[m.ContentHash]; loaded {
			continue
		}
		kept = append(kept, m)
	}

	c.log.Debug().
		Str("query", q.Query).
		Str("type", q.Type).
		Int("returned", len(memories)).
		Int("kept", len(kept)).
		Msg("memory retrieval")
	return kept
}

// parsePayload recovers memory records from the textual tool result. Strict
// JSON payloads are accepted directly; otherwise the embedded results list is
// extracted and run through the literal parser.
func parsePayload(text string) ([]Memory, error) {
	var direct struct {
		Results []Memory `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &direct); err == nil && direct.Results != nil {
		return direct.Results, nil
	}

	blob, ok := ExtractResults(text)
	if !ok {
		return nil, fmt.Errorf("no results list in payload")
	}
	return DecodeResults(blob)
}

func (c *Client) fail(q query.Query, err error) {
	c.metrics.RecordRetrievalError()
	c.log.Warn().Err(err).Str("query", q.Query).Str("type", q.Type).Msg("memory retrieval degraded to empty")
}

func (c *Client) requestID() string {
	return ulid.Make().String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
