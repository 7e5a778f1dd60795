// Package compute evaluates the per-step force pass.
//
// Every particle's force is read from the same snapshot of positions, so
// the pass splits cleanly across goroutines:
//
//   - [Serial]: one loop, the reference implementation
//   - [Parallel]: contiguous chunks of the arena, one goroutine each
//
// [Auto] picks Parallel for arenas large enough to amortise the goroutines.
// Both write each force exactly once, so their results are bit-identical.
package compute
