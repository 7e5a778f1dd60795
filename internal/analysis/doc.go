// Package analysis provides post-run analysis of particle trajectories.
//
//   - [PowerSpectrum]: one-sided power spectrum of a sampled coordinate
//   - [DominantFrequency]: strongest non-DC frequency of a signal
//   - [NewPhasePortrait]: position/velocity trajectory of one particle
//
// # Oscillation Frequency
//
// A single spring bob oscillates near sqrt(k/m)/(2*pi) Hz; the estimate
// sharpens as more samples are taken:
//
//	_, ys, _ := storage.Series(rows, 1, "y")
//	f, err := analysis.DominantFrequency(ys, dt)
package analysis
