package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/signalbook/internal/core"
)

const getMeBody = `{"ok": true, "result": {"id": 7, "is_bot": true, "first_name": "signalbook", "username": "signalbook_bot"}}`

const updatesBody = `{
  "ok": true,
  "result": [
    {"update_id": 10, "message": {"message_id": 1, "date": 1767225600, "text": "BUY BTC @ 44500", "chat": {"id": -1001, "type": "supergroup", "username": "cryptoalerts"}}},
    {"update_id": 11, "channel_post": {"message_id": 2, "date": 1767225660, "text": "🚀 GOLD Long Entry: 2000", "chat": {"id": -1002, "type": "channel", "title": "Metals"}}},
    {"update_id": 12, "message": {"message_id": 3, "date": 1767225720, "chat": {"id": -1001, "type": "supergroup", "username": "cryptoalerts"}}},
    {"update_id": 13, "message": {"message_id": 4, "date": 1767225780, "text": "hello", "chat": {"id": 42, "type": "private"}}}
  ]
}`

// botServer answers getMe and hands getUpdates to the given handler.
func botServer(t *testing.T, token string, updates http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	getMeCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot" + token + "/getMe":
			getMeCalls++
			fmt.Fprint(w, getMeBody)
		case "/bot" + token + "/getUpdates":
			updates(w, r)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"ok": false, "error_code": 404, "description": "Not Found"}`)
		}
	}))
	t.Cleanup(server.Close)
	return server, &getMeCalls
}

func TestSource_FetchMessages(t *testing.T) {
	var offsets []string
	calls := 0

	server, getMeCalls := botServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.FormValue("offset"))
		if !strings.Contains(r.FormValue("allowed_updates"), "channel_post") {
			t.Errorf("expected channel_post in allowed_updates, got %q", r.FormValue("allowed_updates"))
		}
		calls++
		if calls == 1 {
			fmt.Fprint(w, updatesBody)
			return
		}
		fmt.Fprint(w, `{"ok": true, "result": []}`)
	})

	src := NewSource("tok", []string{"@cryptoalerts", "-1002"}).WithBaseURL(server.URL)

	msgs, err := src.FetchMessages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Channel != "@cryptoalerts" || msgs[0].Text != "BUY BTC @ 44500" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Channel != "-1002" {
		t.Errorf("expected numeric channel id, got %s", msgs[1].Channel)
	}
	if msgs[0].ReceivedAt.Unix() != 1767225600 {
		t.Errorf("unexpected timestamp %v", msgs[0].ReceivedAt)
	}

	msgs, err = src.FetchMessages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no new messages, got %d", len(msgs))
	}
	// A zero offset is omitted from the request.
	if len(offsets) != 2 || offsets[0] != "" || offsets[1] != "14" {
		t.Errorf("expected offsets none then 14, got %v", offsets)
	}
	if *getMeCalls != 1 {
		t.Errorf("expected one getMe across polls, got %d", *getMeCalls)
	}
}

func TestSource_FetchMessages_AllChats(t *testing.T) {
	server, _ := botServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, updatesBody)
	})

	msgs, err := NewSource("tok", nil).WithBaseURL(server.URL).FetchMessages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("expected 3 text messages, got %d", len(msgs))
	}
}

func TestSource_FetchMessages_Error(t *testing.T) {
	server, _ := botServer(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"ok": false, "error_code": 409, "description": "Conflict: terminated by other getUpdates request"}`)
	})

	_, err := NewSource("tok", nil).WithBaseURL(server.URL).FetchMessages(context.Background())
	if !errors.Is(err, core.ErrSourceFailed) {
		t.Errorf("expected ErrSourceFailed, got %v", err)
	}
}

func TestSource_FetchMessages_BadToken(t *testing.T) {
	updates := 0
	server, _ := botServer(t, "good", func(w http.ResponseWriter, r *http.Request) {
		updates++
	})

	_, err := NewSource("bad", nil).WithBaseURL(server.URL).FetchMessages(context.Background())
	if !errors.Is(err, core.ErrSourceFailed) {
		t.Errorf("expected ErrSourceFailed, got %v", err)
	}
	if updates != 0 {
		t.Errorf("expected no getUpdates with a rejected token, got %d", updates)
	}
}

func TestSource_FetchMessages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource("tok", nil).FetchMessages(ctx)
	if !errors.Is(err, core.ErrSourceFailed) {
		t.Errorf("expected ErrSourceFailed, got %v", err)
	}
}
