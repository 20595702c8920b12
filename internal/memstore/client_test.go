package memstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/salience/internal/query"
)

func toolText(text string) string {
	resp := map[string]any{
		"jsonrpc": "2.0",
		"id":      "1",
		"result": map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", false, zerolog.Nop())
}

func TestRetrievePythonPayload(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq rpcRequest

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)

		text := `Retrieved 2 memories. {'results': [` +
			`{'content_hash': 'h1', 'content': 'first', 'tags': ['a'], 'created_at': 1718445600.0}, ` +
			`{'content_hash': 'h2', 'content': 'second', 'tags': [], 'metadata': {'quality_score': 0.9}}` +
			`]}`
		w.Write([]byte(toolText(text)))
	})

	memories := c.Retrieve(context.Background(), query.Query{Query: "debugging", Type: "topic", Limit: 2}, nil)

	require.Len(t, memories, 2)
	assert.Equal(t, "h1", memories[0].ContentHash)
	assert.Equal(t, "second", memories[1].Content)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/mcp", gotPath)
	assert.Equal(t, "2.0", gotReq.JSONRPC)
	assert.Equal(t, "tools/call", gotReq.Method)
	assert.Equal(t, "retrieve_memory", gotReq.Params.Name)
	assert.Equal(t, "debugging", gotReq.Params.Arguments.Query)
	assert.Equal(t, 2, gotReq.Params.Arguments.Limit)
	assert.NotEmpty(t, gotReq.ID)
}

func TestRetrieveStrictJSONPayload(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		text := `{"results": [{"content_hash": "h1", "content": "x", "tags": []}]}`
		w.Write([]byte(toolText(text)))
	})

	memories := c.Retrieve(context.Background(), query.Query{Query: "q"}, nil)
	require.Len(t, memories, 1)
	assert.Equal(t, "h1", memories[0].ContentHash)
}

func TestRetrieveExcludesHashes(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		text := `{'results': [{'content_hash': 'seen', 'content': 'a', 'tags': []}, {'content_hash': 'new', 'content': 'b', 'tags': []}, {'content_hash': '', 'content': 'dropped', 'tags': []}]}`
		w.Write([]byte(toolText(text)))
	})

	memories := c.Retrieve(context.Background(), query.Query{Query: "q"},
		map[string]struct{}{"seen": {}})

	require.Len(t, memories, 1)
	assert.Equal(t, "new", memories[0].ContentHash)
}

func TestRetrieveRPCError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc": "2.0", "id": "1", "error": {"code": -32000, "message": "boom"}}`))
	})
	assert.Nil(t, c.Retrieve(context.Background(), query.Query{Query: "q"}, nil))
}

func TestRetrieveHTTPStatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})
	assert.Nil(t, c.Retrieve(context.Background(), query.Query{Query: "q"}, nil))
}

func TestRetrieveUnparseablePayload(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(toolText("completely unstructured response text")))
	})
	assert.Nil(t, c.Retrieve(context.Background(), query.Query{Query: "q"}, nil))
}

func TestRetrieveEmptyContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc": "2.0", "id": "1", "result": {"content": []}}`))
	})
	assert.Nil(t, c.Retrieve(context.Background(), query.Query{Query: "q"}, nil))
}

func TestRetrieveServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "k", false, zerolog.Nop())
	assert.Nil(t, c.Retrieve(context.Background(), query.Query{Query: "q"}, nil))
}

func TestRetrieveContextCancelled(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(toolText(`{'results': []}`)))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Nil(t, c.Retrieve(ctx, query.Query{Query: "q"}, nil))
}
