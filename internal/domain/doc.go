// Package domain defines the core types of the topolab network topology engine.
//
// The package holds the values produced by one topology build and the shape
// handed to visualization clients. It has no I/O and no dependencies beyond
// the standard library.
//
// # Core Types
//
// Device is a node of the topology: a firewall, an interface, a managed
// switch, an access point or an endpoint client. Every device carries a
// category, a presentational position and an open attribute bag.
//
// Connection is a directed edge from the firewall to an attached device,
// typed by ConnectionKind (network, wifi, endpoint) with a bandwidth hint.
//
// TopologyGraph is the result of one build: devices in discovery order,
// connections, and Metadata holding the build timestamp and raw per-category
// device counts.
//
// # Visualization
//
// VisualizationDocument is the consumer-facing reshaping of a TopologyGraph
// for the 3D front end. Its field names are a compatibility surface.
//
// # Invariants
//
// A well-formed graph is a star: exactly one firewall at index 0, unique
// device ids, and every other device the target of exactly one connection
// whose source is the firewall. Validate checks all of them.
package domain
