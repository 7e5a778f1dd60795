package topology

import (
	"fmt"

	"github.com/san-kum/springsim/internal/dynamo"
)

const (
	DefaultGridSpacing = 0.3
	DefaultGridTop     = 3.0
)

// SingleSpring hangs one bob from a fixed reference point. The anchor is
// stored as a fixed particle at index 0 so the force loop needs no special case.
type SingleSpring struct {
	Anchor     dynamo.Vec3
	Bob        dynamo.Vec3
	RestLength float64 // 0 captures the initial distance
}

func NewSingleSpring() *SingleSpring {
	return &SingleSpring{
		Anchor:     dynamo.V(0, 3, 0),
		Bob:        dynamo.V(1.5, 1.5, 0),
		RestLength: 2.0,
	}
}

func (s *SingleSpring) Name() string              { return "single_spring" }
func (s *SingleSpring) ResolutionDependent() bool { return false }

func (s *SingleSpring) Build(int) (*Topology, error) {
	b := NewBuilder(2)
	a := b.AddParticle(s.Anchor, true)
	m := b.AddParticle(s.Bob, false)
	if s.RestLength > 0 {
		b.ConnectRest(a, m, s.RestLength)
	} else {
		b.Connect(a, m)
	}
	return b.Build(0)
}

// Rectangle is the four-mass frame:
//
//	0 (fixed) --- 1 (fixed)
//	    |             |
//	2 (free)  --- 3 (free)
type Rectangle struct {
	Corners [4]dynamo.Vec3
	Shear   bool
}

func NewRectangle() *Rectangle {
	return &Rectangle{
		Corners: [4]dynamo.Vec3{
			dynamo.V(-1, 2, 0),
			dynamo.V(1, 2, 0),
			dynamo.V(-1, 0.5, 0),
			dynamo.V(1, 0.5, 0),
		},
	}
}

func (r *Rectangle) Name() string              { return "rectangle" }
func (r *Rectangle) ResolutionDependent() bool { return false }

func (r *Rectangle) Build(int) (*Topology, error) {
	b := NewBuilder(4)
	for i, c := range r.Corners {
		b.AddParticle(c, i < 2)
	}
	b.Connect(0, 1)
	b.Connect(0, 2)
	b.Connect(1, 3)
	b.Connect(2, 3)
	if r.Shear {
		b.Connect(0, 3)
		b.Connect(1, 2)
	}
	return b.Build(0)
}

// Grid is an N×N sheet hanging in the XY plane, centred on Top.X with its
// first row at Top.Y. Particle (row, col) lives at index row*N+col.
type Grid struct {
	Top     dynamo.Vec3
	Spacing float64
	Shear   bool
	label   string
}

func NewGrid(shear bool) *Grid {
	label := "grid"
	if shear {
		label = "cloth"
	}
	return &Grid{
		Top:     dynamo.V(0, DefaultGridTop, 0),
		Spacing: DefaultGridSpacing,
		Shear:   shear,
		label:   label,
	}
}

func (g *Grid) Name() string              { return g.label }
func (g *Grid) ResolutionDependent() bool { return true }

// Index maps grid coordinates to an arena index.
func Index(row, col, n int) int { return row*n + col }

func (g *Grid) Build(n int) (*Topology, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: resolution %d, need at least 2", dynamo.ErrInvalidTopology, n)
	}
	if !(g.Spacing > 0) {
		return nil, fmt.Errorf("%w: spacing %v", dynamo.ErrInvalidTopology, g.Spacing)
	}

	b := NewBuilder(n * n)
	half := float64(n-1) / 2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pos := dynamo.V(
				g.Top.X+(float64(j)-half)*g.Spacing,
				g.Top.Y-float64(i)*g.Spacing,
				g.Top.Z,
			)
			b.AddParticle(pos, i == 0 && (j == 0 || j == n-1))
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			here := Index(i, j, n)
			if j < n-1 {
				b.Connect(here, Index(i, j+1, n))
			}
			if i < n-1 {
				b.Connect(here, Index(i+1, j, n))
			}
			if !g.Shear || i == n-1 {
				continue
			}
			if j < n-1 {
				b.Connect(here, Index(i+1, j+1, n))
			}
			if j > 0 {
				b.Connect(here, Index(i+1, j-1, n))
			}
		}
	}

	return b.Build(n)
}

// StructuralCount returns the number of structural springs in an N×N grid.
func StructuralCount(n int) int { return 2 * n * (n - 1) }

// ShearCount returns the number of diagonal springs in an N×N grid.
func ShearCount(n int) int { return 2 * (n - 1) * (n - 1) }
