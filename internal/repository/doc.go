// Package repository defines the data access interface for build snapshots.
//
// Every build the service runs is persisted with both of its documents so
// clients can fetch history, compare builds and export old snapshots. The
// implementation is in the sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation stores each build as one row holding the graph
// and visualization document as JSON, alongside indexed summary columns. It
// uses WAL mode for concurrent readers and migrates its schema on startup.
// Tests run against in-memory databases.
package repository
