package viz

import (
	"math"

	"github.com/san-kum/springsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is an orthographic view of the scene. Yaw turns around the world
// Y axis, Pitch around the camera's X axis.
type Camera struct {
	Center     dynamo.Vec3
	Span       float64 // world units visible across the shorter screen side
	Yaw, Pitch float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Center: dynamo.V(0, 1.5, 0), Span: 5, Yaw: 0.35, Pitch: 0.2, Zoom: 1}
}

func (c *Camera) Rotate(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.Pitch+dpitch))
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Fit centres the camera on the bounding box of pts with some margin.
// Non-finite points are ignored.
func (c *Camera) Fit(pts []dynamo.Vec3) {
	lo := dynamo.V(math.Inf(1), math.Inf(1), math.Inf(1))
	hi := dynamo.V(math.Inf(-1), math.Inf(-1), math.Inf(-1))
	n := 0
	for _, p := range pts {
		if dynamo.HasNaN(p) {
			continue
		}
		lo = dynamo.V(math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z))
		hi = dynamo.V(math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z))
		n++
	}
	if n == 0 {
		return
	}
	c.Center = dynamo.Scale(0.5, dynamo.Add(lo, hi))
	c.Span = math.Max(1, 1.4*dynamo.Length(dynamo.Sub(hi, lo)))
}

func (c *Camera) view(p dynamo.Vec3) dynamo.Vec3 {
	p = r3.Sub(p, c.Center)
	p = r3.NewRotation(-c.Yaw, r3.Vec{Y: 1}).Rotate(p)
	return r3.NewRotation(c.Pitch, r3.Vec{X: 1}).Rotate(p)
}

// Scale is sub-pixels per world unit for a sw x sh screen.
func (c *Camera) Scale(sw, sh int) float64 {
	return c.Zoom * float64(min(sw, sh)) / c.Span
}

// Project maps a world point to screen sub-pixels. ok is false when the
// point is not finite or falls outside the screen.
func (c *Camera) Project(p dynamo.Vec3, sw, sh int) (x, y int, ok bool) {
	x, y, ok = c.project(p, sw, sh)
	return x, y, ok && x >= 0 && x < sw && y >= 0 && y < sh
}

func (c *Camera) project(p dynamo.Vec3, sw, sh int) (x, y int, finite bool) {
	if dynamo.HasNaN(p) {
		return 0, 0, false
	}
	v, s := c.view(p), c.Scale(sw, sh)
	fx := v.X*s + float64(sw)/2
	fy := -v.Y*s + float64(sh)/2
	if math.Abs(fx) > 1e5 || math.Abs(fy) > 1e5 {
		return 0, 0, false
	}
	return int(math.Round(fx)), int(math.Round(fy)), true
}

// Scene is one frame to draw.
type Scene struct {
	Positions []dynamo.Vec3
	Springs   []dynamo.Spring
	Fixed     []bool
	Obstacle  *dynamo.Obstacle
}

// Render draws the scene onto c: springs as lines, free particles as
// single dots, anchors as blocks, and the obstacle as its silhouette.
func Render(c *Canvas, cam *Camera, sc Scene) {
	if c == nil || cam == nil {
		return
	}
	sw, sh := c.PixelWidth(), c.PixelHeight()

	if sc.Obstacle != nil {
		if x, y, ok := cam.Project(sc.Obstacle.Center, sw, sh); ok {
			c.Circle(x, y, int(math.Round(sc.Obstacle.Radius*cam.Scale(sw, sh))))
		}
	}

	for _, s := range sc.Springs {
		if s.I >= len(sc.Positions) || s.J >= len(sc.Positions) {
			continue
		}
		x0, y0, ok0 := cam.project(sc.Positions[s.I], sw, sh)
		x1, y1, ok1 := cam.project(sc.Positions[s.J], sw, sh)
		if ok0 && ok1 {
			c.DrawLine(x0, y0, x1, y1)
		}
	}

	for i, p := range sc.Positions {
		x, y, ok := cam.Project(p, sw, sh)
		if !ok {
			continue
		}
		if i < len(sc.Fixed) && sc.Fixed[i] {
			c.Dot(x, y)
		} else {
			c.Set(x, y)
		}
	}
}
