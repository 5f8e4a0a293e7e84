package topology

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"topolab/internal/collector"
	"topolab/internal/domain"
)

// inventory is the raw result of every collector fetch of one build
type inventory struct {
	status       collector.Record
	info         collector.Record
	interfaces   []collector.Record
	switches     []collector.Record
	accessPoints []collector.Record
	endpoints    []collector.Record

	degraded []domain.Category
}

// fetch issues all collector fetches concurrently and waits for every one.
// A failed fetch leaves its source empty and marks its category degraded.
// Only cancellation of ctx aborts the fetch phase.
func (b *Builder) fetch(ctx context.Context) (*inventory, error) {
	inv := &inventory{}
	sources := collector.Sources()
	errs := make([]error, len(sources))

	// Each goroutine owns one inventory field and one errs slot.
	var g errgroup.Group
	g.Go(func() error { inv.status, errs[0] = b.collector.SystemStatus(ctx); return nil })
	g.Go(func() error { inv.info, errs[1] = b.collector.SystemInfo(ctx); return nil })
	g.Go(func() error { inv.interfaces, errs[2] = b.collector.Interfaces(ctx); return nil })
	g.Go(func() error { inv.switches, errs[3] = b.collector.ManagedSwitches(ctx); return nil })
	g.Go(func() error { inv.accessPoints, errs[4] = b.collector.AccessPoints(ctx); return nil })
	g.Go(func() error { inv.endpoints, errs[5] = b.collector.UserDevices(ctx); return nil })
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, source := range sources {
		err := errs[i]
		if err == nil {
			continue
		}
		b.logger.Warn("Collector fetch failed, continuing with empty result",
			zap.String("source", string(source)),
			zap.String("kind", string(collector.KindOf(err))),
			zap.Error(err))

		switch source {
		case collector.SourceSystemStatus:
			inv.status = nil
		case collector.SourceSystemInfo:
			inv.info = nil
		case collector.SourceInterfaces:
			inv.interfaces = nil
		case collector.SourceSwitches:
			inv.switches = nil
		case collector.SourceAccessPoints:
			inv.accessPoints = nil
		case collector.SourceUserDevices:
			inv.endpoints = nil
		}
		inv.markDegraded(categoryOf(source))
	}
	return inv, nil
}

func (inv *inventory) markDegraded(category domain.Category) {
	for _, c := range inv.degraded {
		if c == category {
			return
		}
	}
	inv.degraded = append(inv.degraded, category)
}

func categoryOf(source collector.Source) domain.Category {
	switch source {
	case collector.SourceInterfaces:
		return domain.CategoryInterface
	case collector.SourceSwitches:
		return domain.CategorySwitch
	case collector.SourceAccessPoints:
		return domain.CategoryAccessPoint
	case collector.SourceUserDevices:
		return domain.CategoryEndpoint
	}
	return domain.CategoryFirewall
}
