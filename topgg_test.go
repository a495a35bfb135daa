package topgg_test

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	topgg "github.com/goliatone/go-topgg"
)

func TestNewWebhookDispatchesVote(t *testing.T) {
	var got topgg.Vote
	handler := topgg.VoteHandlerFunc(func(_ context.Context, vote topgg.Vote) {
		got = vote
	})
	hook, err := topgg.NewWebhook("s3cret", handler)
	if err != nil {
		t.Fatalf("new webhook: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/dblwebhook", strings.NewReader(
		`{"bot":"264811613708746752","user":"205680187394752512","type":"upvote","isWeekend":true}`,
	))
	req.Header.Set("Authorization", "s3cret")
	rec := httptest.NewRecorder()
	hook.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Bot != topgg.ID(264811613708746752) || got.User != topgg.ID(205680187394752512) {
		t.Fatalf("expected decoded ids, got %+v", got)
	}
	if got.Type != topgg.VoteTypeUpvote || !got.IsWeekend {
		t.Fatalf("expected weekend upvote, got %+v", got)
	}
}

func TestNewWebhookRequiresPassword(t *testing.T) {
	_, err := topgg.NewWebhook("", topgg.VoteHandlerFunc(nil))
	if err == nil {
		t.Fatalf("expected empty password to be rejected")
	}
}

func TestNewClientFetchesUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/users/205680187394752512" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"205680187394752512","username":"voter"}`))
	}))
	defer server.Close()

	cfg := topgg.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Token = "token"
	c, err := topgg.NewClientFromConfig(cfg.API)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	user, err := c.GetUser(context.Background(), topgg.ID(205680187394752512))
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Username != "voter" {
		t.Fatalf("expected username voter, got %q", user.Username)
	}

	_, err = c.GetUser(context.Background(), topgg.ID(1))
	if !topgg.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestParseIDRejectsSigns(t *testing.T) {
	if _, err := topgg.ParseID("-1"); !topgg.IsInvalidIdentifier(err) {
		t.Fatalf("expected invalid identifier error, got %v", err)
	}
	ids := topgg.ParseIDs([]string{"1", "x", "3"})
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("expected lenient list parse, got %v", ids)
	}
}

func TestMigrationsFSCarriesBothDialects(t *testing.T) {
	fsys := topgg.GetMigrationsFS()
	for _, path := range []string{
		"data/sql/migrations/00001_create_topgg_votes.up.sql",
		"data/sql/migrations/sqlite/00001_create_topgg_votes.up.sql",
	} {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !strings.Contains(string(data), "topgg_votes") {
			t.Fatalf("expected %s to create topgg_votes", path)
		}
	}
}
