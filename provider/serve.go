package provider

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxAcceptDelay = time.Second

// Serve calls p.HandleRequest repeatedly from workers goroutines until ctx is
// cancelled, then closes p. With workers greater than one the handler must be
// safe for concurrent use; values below one are treated as one.
//
// Temporary accept errors, such as running out of file descriptors, are
// logged and retried with backoff. Serve returns nil once p has been closed,
// and the first permanent accept error otherwise.
func Serve(ctx context.Context, p *Provider, workers int) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return p.Close()
	})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.acceptLoop(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (p *Provider) acceptLoop(ctx context.Context) error {
	var delay time.Duration
	for {
		err := p.HandleRequest(ctx)
		if err == nil {
			delay = 0
			continue
		}
		if ne, ok := err.(net.Error); !ok || !ne.Temporary() {
			return err
		}

		if delay == 0 {
			delay = 5 * time.Millisecond
		} else {
			delay = min(2*delay, maxAcceptDelay)
		}
		p.log.LogAttrs(ctx, slog.LevelWarn, "accept failed, retrying",
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return net.ErrClosed
		case <-t.C:
		}
	}
}
