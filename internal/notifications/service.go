package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"oepma/internal/config"
)

const userAgent = "oepma/0.1.0"

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyRunStarted(ctx context.Context, phase string, count int) error
	NotifyRunCompleted(ctx context.Context, phase string, succeeded, failed int, duration time.Duration) error
	NotifyRunFailed(ctx context.Context, phase string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runStart:    cfg.Notifications.RunStart,
		runComplete: cfg.Notifications.RunComplete,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runStart    bool
	runComplete bool
	errors      bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, phase string, count int) error {
	if !n.runStart {
		return nil
	}
	return n.send(ctx, payload{
		title:   "OEPMA - Import Started",
		message: fmt.Sprintf("Started %s run with %d records", phaseLabel(phase), count),
		tags:    []string{"oepma", "import", "started"},
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, phase string, succeeded, failed int, duration time.Duration) error {
	if !n.runComplete {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		tags: []string{"oepma", "import", "completed"},
	}
	if failed == 0 {
		data.title = "OEPMA - Import Complete"
		data.message = fmt.Sprintf("%s run complete: %d records in %s", capitalize(phaseLabel(phase)), succeeded, duration)
	} else {
		data.title = "OEPMA - Import Complete (with errors)"
		data.message = fmt.Sprintf("%s run complete: %d succeeded, %d failed in %s", capitalize(phaseLabel(phase)), succeeded, failed, duration)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, phase string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Import ")
	builder.WriteString(phaseLabel(phase))
	builder.WriteString(" run aborted: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "OEPMA - Error",
		message:  builder.String(),
		tags:     []string{"oepma", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "OEPMA - Test",
		message:  "Notification system test",
		tags:     []string{"oepma", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func phaseLabel(phase string) string {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return "import"
	}
	return phase
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
