package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
	"github.com/goliatone/go-topgg/transport"
)

type apiStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (s *apiStub) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/264811613708746752", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		_, _ = w.Write([]byte(`{
			"id": "264811613708746752",
			"username": "Xetera",
			"bio": "hello",
			"social": {"github": "xetera"},
			"supporter": true,
			"certifiedDev": false,
			"mod": true,
			"webMod": false,
			"admin": false,
			"avatar": "a_1241439d430def25c100dd28add2d42f"
		}`))
	})
	mux.HandleFunc("/users/1", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		_, _ = w.Write([]byte(`{"id": "not-a-number", "username": "broken"}`))
	})
	mux.HandleFunc("/bots/votes", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		_, _ = w.Write([]byte(`[
			{"id": "140862798832861184", "username": "one", "avatar": ""},
			{"id": "140862798832861185", "username": "two", "avatar": "abc"}
		]`))
	})
	mux.HandleFunc("/bots/check", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		if r.URL.Query().Get("userId") == "42" {
			_, _ = w.Write([]byte(`{"voted":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"voted":0}`))
	})
	mux.HandleFunc("/bots/stats", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/bots/429", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/bots/500", func(w http.ResponseWriter, r *http.Request) {
		s.capture(r)
		w.WriteHeader(http.StatusInternalServerError)
	})
	return mux
}

func (s *apiStub) capture(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := ""
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)
}

func (s *apiStub) last() (*http.Request, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1], s.bodies[len(s.bodies)-1]
}

func newTestClient(t *testing.T) (*Client, *apiStub) {
	t.Helper()
	stub := &apiStub{}
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	c, err := New("token-1", WithBaseURL(server.URL+"/"), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, stub
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatalf("expected missing token to fail")
	}
}

func TestGetUserDecodesRecord(t *testing.T) {
	c, stub := newTestClient(t)
	user, err := c.GetUser(context.Background(), snowflake.MustParse("264811613708746752"))
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.ID.String() != "264811613708746752" || user.Username != "Xetera" {
		t.Fatalf("unexpected user %#v", user)
	}
	if user.Socials == nil || user.Socials.GitHub != "xetera" || !user.Moderator || !user.Supporter {
		t.Fatalf("unexpected user flags %#v", user)
	}
	if got := user.AvatarURL(); got != "https://cdn.discordapp.com/avatars/264811613708746752/a_1241439d430def25c100dd28add2d42f.gif?size=1024" {
		t.Fatalf("unexpected avatar url %q", got)
	}
	req, _ := stub.last()
	if req.Header.Get("Authorization") != "token-1" {
		t.Fatalf("expected token header, got %q", req.Header.Get("Authorization"))
	}
}

func TestGetUserInvalidIdentifierFailsDecode(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetUser(context.Background(), snowflake.ID(1))
	if err == nil {
		t.Fatalf("expected invalid id in record to fail")
	}
	if !core.HasTextCode(err, core.ErrorUpstreamFailed) {
		t.Fatalf("expected upstream decode failure, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetUser(context.Background(), snowflake.ID(99))
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUserAcceptsIdentifierShapes(t *testing.T) {
	c, stub := newTestClient(t)
	shapes := []any{
		"264811613708746752",
		snowflake.Text("264811613708746752"),
		int64(264811613708746752),
		uint64(264811613708746752),
		core.User{ID: snowflake.ID(264811613708746752)},
	}
	for _, shape := range shapes {
		user, err := c.GetUser(context.Background(), shape)
		if err != nil {
			t.Fatalf("get user with %T: %v", shape, err)
		}
		if user.Username != "Xetera" {
			t.Fatalf("expected user for %T, got %#v", shape, user)
		}
	}
	if len(stub.requests) != len(shapes) {
		t.Fatalf("expected %d requests, got %d", len(shapes), len(stub.requests))
	}
}

func TestIdentifierShapesAcrossCalls(t *testing.T) {
	c, _ := newTestClient(t)
	voted, err := c.HasVoted(context.Background(), "42")
	if err != nil || !voted {
		t.Fatalf("expected voted=true for text id, got %v err=%v", voted, err)
	}
	voted, err = c.HasVoted(context.Background(), 42)
	if err != nil || !voted {
		t.Fatalf("expected voted=true for int id, got %v err=%v", voted, err)
	}
	if _, err := c.GetBot(context.Background(), int32(500)); !core.HasTextCode(err, core.ErrorUpstreamFailed) {
		t.Fatalf("expected int32 id to reach upstream, got %v", err)
	}
}

func TestInvalidIdentifierSkipsNetwork(t *testing.T) {
	c, stub := newTestClient(t)
	for _, bad := range []any{"abc", " 1", "-1", nil, 1.5} {
		if _, err := c.GetUser(context.Background(), bad); !core.IsInvalidIdentifier(err) {
			t.Fatalf("expected invalid identifier for %#v, got %v", bad, err)
		}
	}
	if _, err := c.HasVoted(context.Background(), "x"); !core.IsInvalidIdentifier(err) {
		t.Fatalf("expected invalid identifier, got %v", err)
	}
	if len(stub.requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(stub.requests))
	}
}

func TestGetVotersPaging(t *testing.T) {
	c, stub := newTestClient(t)
	voters, err := c.GetVoters(context.Background(), 0)
	if err != nil {
		t.Fatalf("get voters: %v", err)
	}
	if len(voters) != 2 || voters[1].ID.String() != "140862798832861185" {
		t.Fatalf("unexpected voters %#v", voters)
	}
	req, _ := stub.last()
	if req.URL.Query().Get("page") != "1" {
		t.Fatalf("expected page clamped to 1, got %q", req.URL.Query().Get("page"))
	}
}

func TestHasVoted(t *testing.T) {
	c, _ := newTestClient(t)
	voted, err := c.HasVoted(context.Background(), snowflake.ID(42))
	if err != nil || !voted {
		t.Fatalf("expected voted=true, got %v err=%v", voted, err)
	}
	voted, err = c.HasVoted(context.Background(), snowflake.ID(43))
	if err != nil || voted {
		t.Fatalf("expected voted=false, got %v err=%v", voted, err)
	}
}

func TestPostStats(t *testing.T) {
	c, stub := newTestClient(t)
	if err := c.PostStats(context.Background(), 1200); err != nil {
		t.Fatalf("post stats: %v", err)
	}
	req, body := stub.last()
	if req.Method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	var payload map[string]uint64
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload["server_count"] != 1200 {
		t.Fatalf("unexpected stats body %q err=%v", body, err)
	}
}

func TestStatusErrors(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetBot(context.Background(), snowflake.ID(429))
	if !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	c, _ = newTestClient(t)
	_, err = c.GetBot(context.Background(), snowflake.ID(500))
	if !core.HasTextCode(err, core.ErrorUpstreamFailed) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
}

func TestRateLimitedBucketFailsFast(t *testing.T) {
	c, stub := newTestClient(t)
	if _, err := c.GetBot(context.Background(), snowflake.ID(429)); err == nil {
		t.Fatalf("expected rate limited response")
	}
	sent := len(stub.requests)

	_, err := c.GetVoters(context.Background(), 1)
	if !core.HasTextCode(err, core.ErrorRateLimited) {
		t.Fatalf("expected throttled bots bucket, got %v", err)
	}
	if len(stub.requests) != sent {
		t.Fatalf("expected throttled call to skip the network")
	}

	if _, err := c.GetUser(context.Background(), snowflake.ID(264811613708746752)); err != nil {
		t.Fatalf("expected users bucket to stay open, got %v", err)
	}
}

func TestRateLimitPolicyCanBeDisabled(t *testing.T) {
	stub := &apiStub{}
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	c, err := New("token-1", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithRateLimitPolicy(nil))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, _ = c.GetBot(context.Background(), snowflake.ID(429))
	_, err = c.GetBot(context.Background(), snowflake.ID(500))
	if !core.HasTextCode(err, core.ErrorUpstreamFailed) {
		t.Fatalf("expected request to reach upstream, got %v", err)
	}
}

func TestRetryAfterFromBody(t *testing.T) {
	res := transport.Response{StatusCode: http.StatusTooManyRequests, Body: []byte(`{"retry-after": 2.5}`)}
	if got := retryAfterFromBody(res); got != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s, got %s", got)
	}
	res.StatusCode = http.StatusOK
	if got := retryAfterFromBody(res); got != 0 {
		t.Fatalf("expected no hint outside 429, got %s", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := core.DefaultConfig().API
	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatalf("expected missing token to fail")
	}
	cfg.Token = "abc"
	c, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("new from config: %v", err)
	}
	if c.baseURL != core.DefaultAPIBaseURL {
		t.Fatalf("unexpected base url %q", c.baseURL)
	}
}
