// Package pulse defines the domain model for composed pulse timelines.
//
// It is intentionally split into:
//   - Atomic timeline primitives (Element): durations, per-line tones, gates
//   - Composition containers (Block, BlockEnsemble): named, ordered sequences
//     plus the measurement metadata consumed by acquisition
//   - Immutable per-call generation parameters (Params)
//
// Every entity is created fresh per generation call and carries no state
// beyond that call. Blocks are mutable while a generation call assembles
// them and sealed before they are handed downstream.
package pulse
