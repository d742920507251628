package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sergerad/nolemma/internal/config"
)

func testApp(cfg *config.Config) *App {
	return &App{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestNodeModeStopsOnContextCancel(t *testing.T) {
	cfg := minimalConfig()
	a := testApp(cfg)
	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := a.NodeMode(ctx, deps); err != nil {
		t.Errorf("NodeMode returned %v, want nil on clean shutdown", err)
	}
}

func TestStandaloneModeStopsOnContextCancel(t *testing.T) {
	cfg := minimalConfig()
	a := testApp(cfg)
	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := a.StandaloneMode(ctx, deps); err != nil {
		t.Errorf("StandaloneMode returned %v, want nil on clean shutdown", err)
	}
}

func TestStandaloneModeRunsDriverWhenEnabled(t *testing.T) {
	cfg := minimalConfig()
	cfg.Server.Enabled = true
	cfg.Server.Port = 0
	cfg.Driver.Enabled = true
	cfg.Driver.SubmitEvery.Duration = 5 * time.Millisecond
	a := testApp(cfg)

	deps, cleanup, err := Wire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := a.StandaloneMode(ctx, deps); err != nil {
		t.Errorf("StandaloneMode returned %v, want nil on clean shutdown", err)
	}

	// Seal whatever the driver left pending, then count every sealed transaction.
	if _, err := deps.Engine.Seal(context.Background()); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	submitted := 0
	for i := 0; i < deps.Engine.Chain().Len(); i++ {
		submitted += len(deps.Engine.Chain().Get(uint64(i)).Transactions)
	}
	if submitted == 0 {
		t.Error("expected the in-process driver to have submitted transactions to the engine")
	}
}

func TestDriverModeSubmitsToTargetURL(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case received <- struct{}{}:
		default:
		}
		json.NewEncoder(w).Encode(map[string]string{
			"hash":   "0x" + "11",
			"sender": "0x" + "22",
		})
	}))
	defer srv.Close()

	cfg := minimalConfig()
	cfg.Driver.TargetURL = srv.URL
	cfg.Driver.SubmitEvery.Duration = 5 * time.Millisecond
	a := testApp(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	if err := a.DriverMode(ctx, nil); err != nil {
		t.Errorf("DriverMode returned %v, want nil on clean shutdown", err)
	}

	select {
	case <-received:
	default:
		t.Error("expected the driver to have submitted at least one transaction to the target server")
	}
}
