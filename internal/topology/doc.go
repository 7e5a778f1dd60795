// Package topology builds particle arenas and the springs that connect them.
//
// A [Layout] turns a resolution into a [Topology]:
//
//   - [SingleSpring]: one bob hanging from a fixed reference point
//   - [Rectangle]: four particles, top pair fixed
//   - [Grid]: N×N sheet, top corners fixed, structural and optional shear springs
//
// Rest lengths are the Euclidean distance between the two particles at build
// time unless a layout supplies one explicitly, so a freshly built topology
// is never under tension.
package topology
