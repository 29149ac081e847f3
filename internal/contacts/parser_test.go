package contacts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/lead-extractor/internal/observability"
)

func chatBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func newTestParser(t *testing.T, handler http.HandlerFunc) (*Parser, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewParser(Config{
		APIKey:  "gsk_test",
		BaseURL: srv.URL,
		Model:   "llama-3.3-70b-versatile",
		Timeout: 5 * time.Second,
	}, observability.Nop()), &calls
}

func TestParseContacts(t *testing.T) {
	p, _ := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatBody(`{"contacts":[{"name":"Alice","email":"a@x.com","phone":"+1-555"},{"name":"Bob","email":null,"phone":null}]}`))
	})

	candidates := p.Parse(context.Background(), "some card text")

	require.Len(t, candidates, 2)
	assert.Equal(t, "Alice", *candidates[0].Name)
	assert.Equal(t, "a@x.com", *candidates[0].Email)
	assert.Equal(t, "+1-555", *candidates[0].Phone)
	assert.Equal(t, "Bob", *candidates[1].Name)
	assert.Nil(t, candidates[1].Email)
}

func TestParseAcceptsAnyListKey(t *testing.T) {
	p, _ := newTestParser(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody(`{"people":[{"name":"Carol","email":"c@x.com","phone":null}]}`))
	})

	candidates := p.Parse(context.Background(), "text")

	require.Len(t, candidates, 1)
	assert.Equal(t, "c@x.com", *candidates[0].Email)
}

func TestParseUnconfiguredKeySkipsCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := NewParser(Config{BaseURL: srv.URL}, observability.Nop())

	candidates := p.Parse(context.Background(), "text")

	assert.Empty(t, candidates)
	assert.Equal(t, int64(0), calls.Load(), "no remote call without a credential")
}

func TestParseFailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed completion payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
		},
		{
			name: "content is not a JSON object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, chatBody("Sure! Here are the contacts: Alice"))
			},
		},
		{
			name: "no list-valued key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, chatBody(`{"contacts":"Alice, Bob"}`))
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, calls := newTestParser(t, tt.handler)

			candidates := p.Parse(context.Background(), "text")

			assert.Empty(t, candidates)
			assert.Equal(t, int64(1), calls.Load(), "exactly one attempt, no retry")
		})
	}
}

func TestParseTimeoutDegradesToEmpty(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	p := NewParser(Config{
		APIKey:  "gsk_test",
		BaseURL: srv.URL,
		Timeout: 20 * time.Millisecond,
	}, observability.Nop())

	start := time.Now()
	candidates := p.Parse(context.Background(), "text")

	assert.Empty(t, candidates)
	assert.Less(t, time.Since(start), 2*time.Second)
}
