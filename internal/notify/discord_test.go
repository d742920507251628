package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscordSenderPostsContent(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	if err := sender.Send(context.Background(), "Block Sealed", "block 5 sealed"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if !strings.Contains(gotBody["content"], "Block Sealed") || !strings.Contains(gotBody["content"], "block 5 sealed") {
		t.Errorf("content = %q, missing expected substrings", gotBody["content"])
	}
}

func TestDiscordSenderReturnsErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	if err := sender.Send(context.Background(), "t", "m"); err == nil {
		t.Error("Send should return an error on a non-2xx response")
	}
}

func TestDiscordSenderName(t *testing.T) {
	if (&DiscordSender{}).Name() != "discord" {
		t.Error(`Name() should return "discord"`)
	}
}
