package analysis

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prashanthpai/readcache/cache"

	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
	reqID  string
}

type callLog struct {
	mu    sync.Mutex
	calls []recorded
}

func (l *callLog) all() []recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recorded(nil), l.calls...)
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *callLog) {
	t.Helper()

	calls := new(callLog)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath(), reqID: r.Header.Get("X-Request-Id")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		calls.mu.Lock()
		calls.calls = append(calls.calls, rec)
		calls.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Timeout: 500 * time.Millisecond})
	require.Nil(t, err)

	return c, calls
}

func TestNewClient(t *testing.T) {
	assert := require.New(t)

	for _, cfg := range []Config{{}, {BaseURL: "ftp://x"}, {BaseURL: "://bad"}} {
		c, err := NewClient(cfg)
		assert.Nil(c)
		assert.NotNil(err)
	}

	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:8090"})
	assert.Nil(err)
	assert.Equal(defaultTimeout, c.timeout)
}

func TestAnalyze(t *testing.T) {
	assert := require.New(t)

	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"operation_type":"read","cache_key":{"fingerprint":"f1","type":"row-lookup","tables":[{"table":"users"},{"table":"orgs"}]}}`)
	})

	args := []driver.NamedValue{{Ordinal: 1, Value: int64(18)}, {Ordinal: 2, Value: "x"}}
	a, err := c.Analyze(context.Background(), "SELECT name FROM users WHERE id = ?", args)
	assert.Nil(err)
	assert.Equal(OperationRead, a.OperationType)
	assert.Equal("f1", a.Fingerprint())
	assert.Equal(KeyRowLookup, a.CacheKey.Type)
	assert.Equal([]string{"users", "orgs"}, a.Tables())

	assert.Len(calls.all(), 1)
	call := calls.all()[0]
	assert.Equal(http.MethodPost, call.method)
	assert.Equal("/analyze", call.path)
	assert.NotEmpty(call.reqID)
	assert.Equal("SELECT name FROM users WHERE id = ?", call.body["sql"])
	assert.Equal([]any{float64(18), "x"}, call.body["params"])
}

func TestAnalyzeMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":              `{"operation_type":`,
		"unknown operation":     `{"operation_type":"delete"}`,
		"read without key":      `{"operation_type":"read"}`,
		"missing operation key": `{}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			a, err := c.Analyze(context.Background(), "SELECT 1", nil)
			require.Nil(t, a)
			require.NotNil(t, err)
		})
	}
}

func TestStatusError(t *testing.T) {
	assert := require.New(t)

	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down\n")
	})

	err := c.Invalidate(context.Background(), "DELETE FROM users", nil)
	var se *StatusError
	assert.True(errors.As(err, &se))
	assert.Equal("invalidate", se.Op)
	assert.Equal(http.StatusBadGateway, se.StatusCode)
	assert.Equal("upstream down", se.Body)
}

func TestTimeout(t *testing.T) {
	assert := require.New(t)

	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	start := time.Now()
	_, err := c.Analyze(context.Background(), "SELECT 1", nil)
	assert.NotNil(err)
	assert.Less(time.Since(start), 2*time.Second)
}

func TestRegister(t *testing.T) {
	assert := require.New(t)

	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	item := &cache.Item{
		Cols: []string{"name"},
		Rows: [][]driver.Value{{"John"}, {"Lisa"}},
	}
	err := c.Register(context.Background(), "SELECT name FROM users", nil, item, 30*time.Second)
	assert.Nil(err)

	call := calls.all()[0]
	assert.Equal("/register", call.path)
	assert.Nil(call.body["params"])
	assert.Equal(float64(30), call.body["ttl"])
	assert.Equal(map[string]any{
		"columns": []any{"name"},
		"rows":    []any{[]any{"John"}, []any{"Lisa"}},
	}, call.body["result"])
}

func TestGet(t *testing.T) {
	assert := require.New(t)

	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/cache/f1" {
			_, _ = io.WriteString(w, `{"result":{"columns":["n"],"rows":[[1]]}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	res, ok, err := c.Get(context.Background(), "f1")
	assert.Nil(err)
	assert.True(ok)
	assert.Equal([]string{"n"}, res.Columns)
	assert.Equal([][]any{{float64(1)}}, res.Rows)

	res, ok, err = c.Get(context.Background(), "a/b")
	assert.Nil(err)
	assert.False(ok)
	assert.Nil(res)
	assert.Equal("/cache/a%2Fb", calls.all()[1].path)
}

func TestAdminOps(t *testing.T) {
	assert := require.New(t)

	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stats" {
			_, _ = io.WriteString(w, `{"hits":10,"misses":2}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	assert.Nil(c.ClearTable(context.Background(), "users"))
	assert.NotNil(c.ClearTable(context.Background(), ""))

	stats, err := c.Stats(context.Background())
	assert.Nil(err)
	assert.Equal(float64(10), stats["hits"])

	assert.Len(calls.all(), 2)
	assert.Equal(http.MethodDelete, calls.all()[0].method)
	assert.Equal("/table/users", calls.all()[0].path)
}

func TestParams(t *testing.T) {
	assert := require.New(t)

	assert.Nil(Params(nil))
	assert.Equal([]any{}, Params([]driver.NamedValue{}))
	assert.Equal([]any{"a", int64(2)}, Params([]driver.NamedValue{
		{Ordinal: 2, Value: int64(2)},
		{Ordinal: 1, Value: "a"},
	}))
	assert.Equal(map[string]any{"id": int64(1), "2": "x"}, Params([]driver.NamedValue{
		{Name: "id", Ordinal: 1, Value: int64(1)},
		{Ordinal: 2, Value: "x"},
	}))
}
