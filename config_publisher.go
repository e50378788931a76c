package heartbeat

import (
	"context"

	"github.com/xtreemfs/heartbeat-agent/internal/hblog"
)

// configPublisher implements component D: one-shot upload of the service's
// effective configuration to DIR. Failures are logged and swallowed per
// §4.4 — configuration publication is a convenience, not a correctness
// requirement of the heartbeat.
type configPublisher struct {
	client DIRClient
	log    *hblog.Logger
}

func newConfigPublisher(client DIRClient, log *hblog.Logger) *configPublisher {
	return &configPublisher{client: client, log: log}
}

func (p *configPublisher) publish(ctx context.Context, uuid string, data map[string]string) {
	current, err := p.client.ConfigurationGet(ctx, uuid, 0)
	if err != nil {
		p.log.Warn("configuration get failed, publish skipped", hblog.Fields{"uuid": uuid, "error": err})
		return
	}

	cfg := Configuration{
		UUID:    uuid,
		Version: current.Version,
		Data:    data,
	}

	if err := p.client.ConfigurationSet(ctx, cfg, 0); err != nil {
		p.log.Warn("configuration publish failed", hblog.Fields{"uuid": uuid, "error": err})
	}
}
