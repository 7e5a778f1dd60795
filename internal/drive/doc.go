// Package drive provides anchor drivers for fixed particles.
//
// A driver implements [dynamo.Driver] and is applied by the simulation after
// each integration pass:
//
//   - [Static]: anchors stay at their base positions
//   - [Oscillate]: anchors move sinusoidally along an axis
//   - [Circle]: anchors orbit their base position in the XZ plane
//   - [Manual]: anchors follow an offset set interactively
//
// Drivers implementing [dynamo.Configurable] support live tuning.
package drive
