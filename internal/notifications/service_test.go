package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oepma/internal/config"
	"oepma/internal/notifications"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, chan captured) {
	t.Helper()
	ch := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunStarted(context.Background(), "stage", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.NotifyRunFailed(context.Background(), "stage", errors.New("x")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	tests := []struct {
		name string
		send func() error
		want captured
	}{
		{
			name: "run started",
			send: func() error { return svc.NotifyRunStarted(ctx, "stage", 12) },
			want: captured{title: "OEPMA - Import Started", message: "Started stage run with 12 records", tags: "oepma,import,started"},
		},
		{
			name: "run completed",
			send: func() error { return svc.NotifyRunCompleted(ctx, "materialize", 5, 0, 1500*time.Millisecond) },
			want: captured{title: "OEPMA - Import Complete", message: "Materialize run complete: 5 records in 2s", tags: "oepma,import,completed"},
		},
		{
			name: "run completed with failures",
			send: func() error { return svc.NotifyRunCompleted(ctx, "all", 3, 2, time.Minute) },
			want: captured{title: "OEPMA - Import Complete (with errors)", message: "All run complete: 3 succeeded, 2 failed in 1m0s", tags: "oepma,import,completed"},
		},
		{
			name: "run failed",
			send: func() error { return svc.NotifyRunFailed(ctx, "stage", errors.New("parse Master.xml: unexpected EOF")) },
			want: captured{title: "OEPMA - Error", message: "Import stage run aborted: parse Master.xml: unexpected EOF", tags: "oepma,error,alert", priority: "high"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.send(); err != nil {
				t.Fatalf("send: %v", err)
			}
			got := <-ch
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.RunStart = false
	cfg.Notifications.RunComplete = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	_ = svc.NotifyRunStarted(ctx, "stage", 1)
	_ = svc.NotifyRunCompleted(ctx, "stage", 1, 0, time.Second)
	_ = svc.NotifyRunFailed(ctx, "stage", errors.New("boom"))
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	got := <-ch
	if got.title != "OEPMA - Test" {
		t.Fatalf("expected only the test notification, got %+v", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected notification %+v", extra)
	default:
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusBadGateway)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
