// Package topology synthesizes a star-shaped network graph from collector
// inventories and reshapes it for visualization clients.
//
// Builder.Build runs one build: it fetches every collector source
// concurrently, degrades any failed source to an empty result, and assembles
// devices and connections in a single append-only pass. ExportForVisualization
// is a pure transform of a finished graph.
package topology
