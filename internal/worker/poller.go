package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/service"
)

// Poller runs scoring passes on a fixed interval. Optional: the engine is
// caller-driven and the explicit pulls endpoint remains the primary trigger;
// a failed pass simply waits for the next tick.
type Poller struct {
	service *service.ScoreService
	config  *config.PollerConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewPoller creates a new sync poller
func NewPoller(svc *service.ScoreService, cfg *config.PollerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		service: svc,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background polling loop
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("sync poller started", "interval", p.config.Interval)

	go p.run(ctx)
	return nil
}

// Stop stops the background polling loop
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("sync poller stopped")
	return nil
}

// run is the main poller loop
func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce executes a single scoring pass
func (p *Poller) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, p.config.Interval)
	defer cancel()

	if _, err := p.service.Sync(passCtx); err != nil {
		p.logger.Error("scheduled scoring pass failed", "error", err)
	}
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
