// Package diagnostics derives an engine health assessment from a sensor snapshot.
//
// params.go holds the static per-parameter range tables and the Table that
// validates them once at process start. Every other routine reads the Table
// and never mutates it.
//
// The evaluation pass is:
//
//	Classify  -> zone per parameter (optimal / warning / critical)
//	Score     -> weighted 0..1 score over ideal / acceptable bands
//	Distance  -> remaining distance from the score, with bounded jitter
//	Advise    -> urgent / preventive actions, risk level, next service
//	Analyze   -> efficiency, thermal balance, pressure systems, state
//	Compose   -> free-text operational recommendations
//
// The scorer, the zone classifier and the composer each use their own
// thresholds for the same physical parameter. They are kept separate.
//
// The only non-determinism is the RandomSource passed to the distance
// estimator. Engine.Evaluate is safe for concurrent use when its source is.
package diagnostics
