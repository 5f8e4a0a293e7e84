package domain

import "errors"

var (
	// ErrMalformedGraph marks a graph that violates the star-topology invariants
	ErrMalformedGraph = errors.New("malformed topology graph")

	// ErrBuildInconsistency marks a build that produced a malformed graph.
	// It indicates a defect in the builder, never a recoverable condition.
	ErrBuildInconsistency = errors.New("topology build inconsistency")
)
