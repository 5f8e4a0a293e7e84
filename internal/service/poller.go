package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is used when a Poller is given a non-positive interval
const DefaultPollInterval = 5 * time.Minute

// Poller rebuilds the topology on a fixed interval
type Poller struct {
	svc      *TopologyService
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller for svc
func NewPoller(svc *TopologyService, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{svc: svc, interval: interval, logger: logger}
}

// Run rebuilds once immediately and then on every tick until ctx is done.
// Failed rebuilds are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Started polling loop", zap.Duration("interval", p.interval))

	if _, _, err := p.svc.Rebuild(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Initial rebuild failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping polling loop")
			return
		case <-ticker.C:
			if _, _, err := p.svc.Rebuild(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("Scheduled rebuild failed", zap.Error(err))
			}
		}
	}
}
