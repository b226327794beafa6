package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/allevapp/allevapp/internal/users"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

var testTokens = users.Tokens{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "allevapp-test"}

const (
	adminID = "0b8f4c1e-5f0e-4c89-9c59-1d4f0b3a1e01"
	techID  = "0b8f4c1e-5f0e-4c89-9c59-1d4f0b3a1e02"
	mgrID   = "0b8f4c1e-5f0e-4c89-9c59-1d4f0b3a1e03"
)

func token(t *testing.T, role users.Role) string {
	t.Helper()
	id := map[users.Role]string{users.RoleAdmin: adminID, users.RoleTechnician: techID, users.RoleManager: mgrID}[role]
	raw, _, err := testTokens.Issue(users.User{ID: id, Email: string(role) + "@farm.example", Role: role}, time.Now())
	require.NoError(t, err)
	return raw
}

type published struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(topic string, key, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: string(key), value: value})
}

type memCache struct{ m map[string][]byte }

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	c.m[key] = b
	return err
}

type testEnv struct {
	api       *API
	quotes    *fakeQuotes
	reports   *fakeReports
	users     *fakeUsers
	functions *fakeFunctions
	dash      *fakeDashboard
	publisher *fakePublisher
	cache     *memCache
}

func newEnv() *testEnv {
	e := &testEnv{
		quotes:    newFakeQuotes(),
		reports:   &fakeReports{},
		users:     newFakeUsers(),
		functions: &fakeFunctions{},
		dash:      &fakeDashboard{},
		publisher: &fakePublisher{},
		cache:     newMemCache(),
	}
	e.api = &API{
		Auth:      &Auth{Tokens: testTokens},
		Users:     &UsersHandler{Store: e.users, Tokens: testTokens, Mailer: e.functions},
		Quotes:    &QuotesHandler{Store: e.quotes, Publisher: e.publisher, Cache: e.cache, Service: "allevapp-api"},
		Reports:   &ReportsHandler{Store: e.reports},
		Directory: &DirectoryHandler{},
		Functions: &FunctionsHandler{Notify: e.functions},
		Dashboard: &DashboardHandler{Store: e.dash, Cache: e.cache},
	}
	return e
}

func (e *testEnv) handler() http.Handler {
	r := NewRouter()
	e.api.Register(r)
	return r
}

// do sends a JSON request with an optional bearer token.
func (e *testEnv) do(t *testing.T, method, path, tok string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body == nil {
		req.ContentLength = 0
	}
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
