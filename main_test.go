package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akinalp/teamchat/client"
	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/ws"
)

const waitTimeout = 3 * time.Second

type testServer struct {
	app *App
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "chat.db")},
		JWT:      config.JWTConfig{Secret: "test-secret"},
		Chat: config.ChatConfig{
			MaxMessageLength: 2000,
			AutoJoinOnSend:   true,
			TypingWindow:     2 * time.Second,
		},
		RateLimit: config.RateLimitConfig{
			MessageMax:      100,
			MessageWindow:   time.Second,
			MessageCooldown: time.Second,
			ConnectMax:      100,
			ConnectWindow:   time.Minute,
		},
		Membership: config.MembershipConfig{
			CacheTTL: time.Minute,
			Seed: map[string][]string{
				"ops":   {"alice", "bob"},
				"sales": {"bob"},
			},
		},
	}

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() unexpected error: %v", err)
	}
	srv := httptest.NewServer(app.handler)

	t.Cleanup(app.Close)
	t.Cleanup(srv.Close)

	return &testServer{app: app, srv: srv}
}

func (ts *testServer) token(t *testing.T, userID, name string) string {
	t.Helper()
	token, err := ts.app.services.Token.IssueAccessToken(userID, userID, name, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}
	return token
}

func (ts *testServer) dial(t *testing.T, userID, name string) *client.Session {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	sess, err := client.Dial(ctx, wsURL, ts.token(t, userID, name), &client.Options{})
	if err != nil {
		t.Fatalf("Dial(%s) unexpected error: %v", userID, err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

// collect, op için gelen event'leri buffer'lı bir channel'a aktarır.
// Aksiyondan ÖNCE çağrılmalı.
func collect(s *client.Session, op string) <-chan client.Event {
	ch := make(chan client.Event, 64)
	s.Subscribe(op, func(ev client.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return ch
}

func recv(t *testing.T, ch <-chan client.Event, what string) client.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		return client.Event{}
	}
}

func expectNone(t *testing.T, ch <-chan client.Event, what string) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected %s: %s", what, ev.Data)
	case <-time.After(200 * time.Millisecond):
	}
}

func joinTeam(t *testing.T, s *client.Session, teamID string) {
	t.Helper()
	history := collect(s, ws.OpHistory)
	if err := s.JoinTeam(teamID); err != nil {
		t.Fatalf("JoinTeam(%s) unexpected error: %v", teamID, err)
	}
	recv(t, history, "history for "+teamID)
}

func TestEndToEnd_HelloReachesBothAndHistory(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")
	b := ts.dial(t, "bob", "Bob")

	if got := b.Ready().TeamIDs; len(got) != 2 {
		t.Errorf("ready team_ids for bob = %v, want [ops sales]", got)
	}

	joinTeam(t, a, "ops")
	joinTeam(t, b, "ops")

	aMsgs := collect(a, ws.OpReceiveMessage)
	bMsgs := collect(b, ws.OpReceiveMessage)

	if err := a.SendMessage("ops", "hello"); err != nil {
		t.Fatalf("SendMessage() unexpected error: %v", err)
	}

	var ma, mb models.Message
	if err := recv(t, aMsgs, "message at A").Decode(&ma); err != nil {
		t.Fatal(err)
	}
	if err := recv(t, bMsgs, "message at B").Decode(&mb); err != nil {
		t.Fatal(err)
	}
	if ma.ID != mb.ID || ma.Body != "hello" || mb.Body != "hello" {
		t.Errorf("A got %+v, B got %+v", ma, mb)
	}
	if mb.SenderName != "Alice" || mb.TeamID != "ops" {
		t.Errorf("message = %+v", mb)
	}
	expectNone(t, bMsgs, "duplicate delivery")

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/teams/ops/messages", nil)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, "bob", "Bob"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Success bool             `json:"success"`
		Data    []models.Message `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Body != "hello" || body.Data[0].ID != ma.ID {
		t.Errorf("history = %+v", body.Data)
	}
}

func TestEndToEnd_UnreadCounts(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")
	b := ts.dial(t, "bob", "Bob")

	joinTeam(t, a, "ops")
	joinTeam(t, b, "ops")
	joinTeam(t, b, "sales")
	if err := b.SelectTeam("sales"); err != nil {
		t.Fatal(err)
	}
	if got := b.Unread.Count("ops"); got != 0 {
		t.Fatalf("initial unread(ops) = %d", got)
	}

	bMsgs := collect(b, ws.OpReceiveMessage)
	if err := a.SendMessage("ops", "status update"); err != nil {
		t.Fatal(err)
	}
	recv(t, bMsgs, "message at B")

	if got := b.Unread.Count("ops"); got != 1 {
		t.Errorf("unread(ops) = %d, want 1", got)
	}
	if got := b.Unread.Count("sales"); got != 0 {
		t.Errorf("unread(sales) = %d, want 0", got)
	}

	if err := b.SelectTeam("ops"); err != nil {
		t.Fatal(err)
	}
	if got := b.Unread.Count("ops"); got != 0 {
		t.Errorf("unread(ops) after select = %d, want 0", got)
	}
}

func TestEndToEnd_TypingExcludesSender(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")
	b := ts.dial(t, "bob", "Bob")
	joinTeam(t, a, "ops")
	joinTeam(t, b, "ops")

	aTyping := collect(a, ws.OpTyping)
	bTyping := collect(b, ws.OpTyping)

	if err := a.SendTyping("ops"); err != nil {
		t.Fatal(err)
	}

	var notice ws.TypingNotice
	if err := recv(t, bTyping, "typing at B").Decode(&notice); err != nil {
		t.Fatal(err)
	}
	if notice.User != "Alice" || notice.TeamID != "ops" {
		t.Errorf("typing notice = %+v", notice)
	}
	if got := b.Typing.Typing("ops"); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("B typing(ops) = %v, want [Alice]", got)
	}
	expectNone(t, aTyping, "own typing notice")
}

func TestEndToEnd_StorageFailureIsNotBroadcast(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")
	b := ts.dial(t, "bob", "Bob")
	joinTeam(t, a, "ops")
	joinTeam(t, b, "ops")

	aErrs := collect(a, ws.OpError)
	bMsgs := collect(b, ws.OpReceiveMessage)
	bErrs := collect(b, ws.OpError)

	// Message store erişilemez.
	if err := ts.app.db.Conn.Close(); err != nil {
		t.Fatal(err)
	}

	if err := a.SendMessage("ops", "into the void"); err != nil {
		t.Fatal(err)
	}

	var data ws.ErrorData
	if err := recv(t, aErrs, "error at A").Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Code != "storage_error" || !data.Retryable || data.Op != ws.OpSendMessage {
		t.Errorf("error = %+v", data)
	}
	expectNone(t, bMsgs, "broadcast of unpersisted message")
	expectNone(t, bErrs, "error leaked to other session")
}

func TestEndToEnd_ErrorsStayWithOriginatingSession(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")

	aErrs := collect(a, ws.OpError)

	tests := []struct {
		name     string
		do       func() error
		wantCode string
	}{
		{"join non member team", func() error { return a.JoinTeam("sales") }, "forbidden"},
		{"empty message", func() error { return a.SendMessage("ops", "   ") }, "validation_error"},
		{"typing without join", func() error { return a.SendTyping("ops") }, "not_joined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); err != nil {
				t.Fatal(err)
			}
			var data ws.ErrorData
			if err := recv(t, aErrs, "error").Decode(&data); err != nil {
				t.Fatal(err)
			}
			if data.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", data.Code, tt.wantCode)
			}
		})
	}
}

func TestEndToEnd_HeartbeatAndLeave(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Alice")
	joinTeam(t, a, "ops")

	acks := collect(a, ws.OpHeartbeatAck)
	if err := a.Heartbeat(); err != nil {
		t.Fatal(err)
	}
	recv(t, acks, "heartbeat_ack")

	left := collect(a, ws.OpLeft)
	if err := a.LeaveTeam("ops"); err != nil {
		t.Fatal(err)
	}
	recv(t, left, "left")

	if _, ok := a.Unread.Counts()["ops"]; ok {
		t.Error("unread counter kept after leave")
	}
}

func TestEndToEnd_RejectsInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	_, err := client.Dial(context.Background(), wsURL, "bogus", &client.Options{})

	var dialErr *client.DialError
	if !errors.As(err, &dialErr) || dialErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Dial() error = %v, want DialError 401", err)
	}
}

func TestEndToEnd_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestEndToEnd_TypingWithSharedDisplayName(t *testing.T) {
	ts := newTestServer(t)
	a := ts.dial(t, "alice", "Sam")
	b := ts.dial(t, "bob", "Sam")
	joinTeam(t, a, "ops")
	joinTeam(t, b, "ops")

	bTyping := collect(b, ws.OpTyping)
	if err := a.SendTyping("ops"); err != nil {
		t.Fatal(err)
	}
	recv(t, bTyping, "typing at B")

	if got := b.Typing.Typing("ops"); len(got) != 1 || got[0] != "Sam" {
		t.Errorf("B typing(ops) = %v, want [Sam]", got)
	}
}
