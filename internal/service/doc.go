// Package service coordinates builds between the topology builder, the
// snapshot repository and connected clients.
//
// # Services
//
// TopologyService runs rebuilds one at a time, exports each graph for
// visualization, persists the pair, computes the device diff against the
// previous build and caches the result for readers. Cached builds are
// immutable and shared between readers.
//
// Poller drives TopologyService.Rebuild on a fixed interval.
//
// # Event System
//
// Rebuilds publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE).
package service
