package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type captureSubmitter struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (c *captureSubmitter) Submit(_ context.Context, upd tgbotapi.Update) {
	c.mu.Lock()
	c.updates = append(c.updates, upd)
	c.mu.Unlock()
}

const updateJSON = `{"update_id":7,"message":{"message_id":3,"from":{"id":9,"username":"alice"},"chat":{"id":42,"type":"private"},"date":0,"text":"/start"}}`

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantQueued int
	}{
		{name: "accepted", path: "/telegram/s3cret", body: updateJSON, wantStatus: http.StatusOK, wantQueued: 1},
		{name: "wrong secret", path: "/telegram/guess", body: updateJSON, wantStatus: http.StatusNotFound},
		{name: "prefix of secret", path: "/telegram/s3c", body: updateJSON, wantStatus: http.StatusNotFound},
		{name: "malformed body", path: "/telegram/s3cret", body: "{", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &captureSubmitter{}
			r := newRouter(slog.Default(), Deps{
				Store:         &fakeStore{},
				Broker:        NewBroker(),
				Webhook:       sub,
				WebhookSecret: "s3cret",
			})

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if len(sub.updates) != tt.wantQueued {
				t.Fatalf("queued %d updates, want %d", len(sub.updates), tt.wantQueued)
			}
			if tt.wantQueued == 0 {
				return
			}
			upd := sub.updates[0]
			if upd.UpdateID != 7 || upd.Message == nil || upd.Message.Text != "/start" || upd.Message.Chat.ID != 42 {
				t.Errorf("update = %+v", upd)
			}
		})
	}
}

func TestWebhookNotRoutedWhenPolling(t *testing.T) {
	r := newRouter(slog.Default(), Deps{Store: &fakeStore{}, Broker: NewBroker()})

	req := httptest.NewRequest(http.MethodPost, "/telegram/anything", strings.NewReader(updateJSON))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebhookEmptySecretRejects(t *testing.T) {
	sub := &captureSubmitter{}
	r := newRouter(slog.Default(), Deps{Store: &fakeStore{}, Broker: NewBroker(), Webhook: sub})

	req := httptest.NewRequest(http.MethodPost, "/telegram/x", strings.NewReader(updateJSON))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound || len(sub.updates) != 0 {
		t.Fatalf("status = %d, queued = %d; want 404 and nothing queued", rec.Code, len(sub.updates))
	}
}
