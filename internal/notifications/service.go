package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortsmith/internal/config"
)

const userAgent = "shortsmith/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobReady  Event = "job_ready"
	EventJobFailed Event = "job_failed"
	EventTest      Event = "test"
)

// Payload carries event fields. Known keys: "jobID", "title", "outputPath",
// "error", "stage", "duration".
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobReady:  cfg.Notifications.JobReady,
			EventJobFailed: cfg.Notifications.JobFailed,
			EventTest:      true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	title := text(data, "title")
	if title == "" {
		title = text(data, "jobID")
	}
	switch event {
	case EventJobReady:
		message := fmt.Sprintf("✅ Video ready: %s", title)
		if output := text(data, "outputPath"); output != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, output)
		}
		if d, ok := data["duration"].(time.Duration); ok && d > 0 {
			message = fmt.Sprintf("%s\nRendered in %s", message, d.Round(time.Second))
		}
		return payload{
			title:    "shortsmith - Ready",
			message:  message,
			tags:     []string{"shortsmith", "render", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Render failed")
		if title != "" {
			builder.WriteString(": ")
			builder.WriteString(title)
		}
		if stage := text(data, "stage"); stage != "" {
			builder.WriteString(" (")
			builder.WriteString(stage)
			builder.WriteString(")")
		}
		if reason := text(data, "error"); reason != "" {
			builder.WriteString("\n")
			builder.WriteString(reason)
		}
		return payload{
			title:    "shortsmith - Error",
			message:  builder.String(),
			tags:     []string{"shortsmith", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "shortsmith - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"shortsmith", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func text(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
