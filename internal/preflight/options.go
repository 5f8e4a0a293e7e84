package preflight

import (
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Prober
type Option func(*Prober)

// WithTimeout bounds the whole probe, including the availability check
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithExtraPorts adds ports to probe next to the API port.
// Format: "80,22" or "8000-8010". Invalid lists are ignored.
func WithExtraPorts(ports string) Option {
	return func(p *Prober) {
		if ports == "" {
			return
		}
		if validated, err := parsePorts(ports); err == nil {
			p.extraPorts = validated
		}
	}
}

// WithServiceDetection enables or disables service version detection (-sV)
func WithServiceDetection(enabled bool) Option {
	return func(p *Prober) {
		p.serviceDetection = enabled
	}
}

// WithSkipHostDiscovery sets whether to treat the host as online (-Pn)
func WithSkipHostDiscovery(skip bool) Option {
	return func(p *Prober) {
		p.skipHostDiscovery = skip
	}
}

// WithLogger sets the prober's logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}
