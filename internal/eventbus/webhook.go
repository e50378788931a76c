package eventbus

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
)

// WebhookBus POSTs lifecycle events as JSON to a configured URL, adapted
// from the teacher's http.go HttpUtil POST path.
type WebhookBus struct {
	url    string
	client *http.Client
	log    *hblog.Logger
}

func NewWebhookBus(url string, log *hblog.Logger) *WebhookBus {
	return &WebhookBus{url: url, client: &http.Client{Timeout: 10 * time.Second}, log: log}
}

// Publish implements heartbeat.EventBus. Best-effort: failures are logged.
func (b *WebhookBus) Publish(event heartbeat.LifecycleEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("failed to marshal lifecycle event", hblog.Fields{"error": err})
		return
	}

	resp, err := b.client.Post(b.url, "application/json;charset=utf-8", bytes.NewReader(body))
	if err != nil {
		b.log.Warn("failed to post lifecycle event", hblog.Fields{"url": b.url, "error": err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b.log.Warn("webhook rejected lifecycle event", hblog.Fields{"url": b.url, "status": resp.Status})
	}
}
