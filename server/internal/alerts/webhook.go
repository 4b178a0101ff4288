package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/server/internal/config"
)

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert, hooks []config.WebhookConfig) {
	if e.notify != nil {
		defer e.notify(a)
	}
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"suite", a.Suite,
				"bench", a.Bench,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"bench", a.Bench,
				"state", a.State,
			)
		}
	}
}

func (e *Engine) sendSlack(url string, a *Alert) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s* %s", stateLabel(a), a.Message),
		Attachments: []slack.Attachment{{
			Color:    "#" + severityColor(a),
			Fallback: a.Message,
			Fields: []slack.AttachmentField{
				{Title: "Suite", Value: a.Suite, Short: true},
				{Title: "Bench", Value: a.Bench, Short: true},
				{Title: "Ratio", Value: regress.FormatFactor(a.Ratio) + "x", Short: true},
				{Title: "Commit", Value: shortID(a.Commit), Short: true},
			},
		}},
	}
	return slack.PostWebhookCustomHTTP(url, e.client, msg)
}

func (e *Engine) sendTeams(url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a),
		"summary":    a.Suite + " / " + a.Bench,
		"title":      fmt.Sprintf("Benchmark %s: %s / %s", a.State, a.Suite, a.Bench),
		"text":       a.Message,
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func stateLabel(a *Alert) string {
	switch {
	case a.State == StateResolved:
		return "[RESOLVED]"
	case a.Severity == SeverityCritical:
		return "[CRITICAL]"
	default:
		return "[WARNING]"
	}
}

func severityColor(a *Alert) string {
	switch {
	case a.State == StateResolved:
		return "2EB67D"
	case a.Severity == SeverityCritical:
		return "FF4F6A"
	default:
		return "FFAB40"
	}
}
