package app

import (
	"context"
	"testing"
	"time"

	"github.com/sergerad/nolemma/internal/config"
)

func minimalConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.Driver.Enabled = false
	cfg.Audit.Enabled = false
	cfg.Archive.Enabled = false
	cfg.RateLim.Enabled = false
	cfg.Node.SealPeriod.Duration = time.Hour
	return &cfg
}

func TestWireProducesEngineWithoutOptionalComponents(t *testing.T) {
	cfg := minimalConfig()
	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	if deps.Engine == nil {
		t.Fatal("Wire should always construct an Engine")
	}
	if deps.HTTPServer != nil || deps.WSHub != nil {
		t.Error("HTTPServer and WSHub should be nil when server.enabled is false")
	}
	if deps.AuditStore != nil || deps.RateLimiter != nil || deps.Archiver != nil {
		t.Error("optional components should be nil when their config sections are disabled")
	}
	if deps.Notifier == nil {
		t.Error("Notifier should always be constructed, even with zero senders")
	}
}

func TestWireBuildsTransportWhenServerEnabled(t *testing.T) {
	cfg := minimalConfig()
	cfg.Server.Enabled = true
	cfg.Server.Port = 0

	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	if deps.HTTPServer == nil {
		t.Error("HTTPServer should be constructed when server.enabled is true")
	}
	if deps.WSHub == nil {
		t.Error("WSHub should be constructed when server.enabled is true")
	}
}
