package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sergerad/nolemma/internal/driver"
)

// NodeMode runs the sequencer engine and its HTTP+WebSocket transport with
// no local traffic generator. External clients drive it over SubmitTx.
func (a *App) NodeMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.Engine.Run(gctx) })

	if deps.HTTPServer != nil {
		g.Go(func() error { return deps.HTTPServer.Start() })
		g.Go(func() error { return deps.WSHub.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			return deps.HTTPServer.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("app: node mode: %w", err)
	}
	return nil
}

// DriverMode runs only a traffic generator against a remote node's SubmitTx
// endpoint, per -mode driver.
func (a *App) DriverMode(ctx context.Context, deps *Dependencies) error {
	submitter := driver.NewHTTPSubmitter(a.cfg.Driver.TargetURL)
	drv, err := driver.New(submitter, driver.Config{
		SubmitEvery: a.cfg.Driver.SubmitEvery.Duration,
		ChainID:     int64(a.cfg.Driver.ChainID),
	})
	if err != nil {
		return fmt.Errorf("app: driver mode: %w", err)
	}
	if err := drv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("app: driver mode: %w", err)
	}
	return nil
}

// StandaloneMode runs the sequencer engine, its transport, and an in-process
// traffic generator submitting directly to the engine. It is the default
// mode and shows a submit-seal cycle without any other process; nothing in
// this mode verifies the sealed blocks.
func (a *App) StandaloneMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.Engine.Run(gctx) })

	if deps.HTTPServer != nil {
		g.Go(func() error { return deps.HTTPServer.Start() })
		g.Go(func() error { return deps.WSHub.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			return deps.HTTPServer.Shutdown(context.Background())
		})
	}

	if a.cfg.Driver.Enabled {
		drv, err := driver.New(deps.Engine, driver.Config{
			SubmitEvery: a.cfg.Driver.SubmitEvery.Duration,
			ChainID:     int64(a.cfg.Driver.ChainID),
		})
		if err != nil {
			return fmt.Errorf("app: standalone mode: %w", err)
		}
		g.Go(func() error { return drv.Run(gctx) })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("app: standalone mode: %w", err)
	}
	return nil
}
