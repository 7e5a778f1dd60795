package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/viz"
)

const (
	background  = "#0a0a0a"
	springColor = "#00cccc"
	freeColor   = "#00ff00"
	anchorColor = "#ff4444"
	sphereColor = "#ffaa00"
)

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// SceneToSVG draws one frame through cam: the obstacle as a circle,
// springs as lines, anchors red and free particles green. Particles or
// springs with non-finite coordinates are left out.
func SceneToSVG(sc viz.Scene, cam *viz.Camera, width, height int) string {
	var sb strings.Builder
	header(&sb, width, height)
	if cam == nil {
		cam = viz.NewCamera()
		cam.Fit(sc.Positions)
	}
	scale := cam.Scale(width, height)

	if sc.Obstacle != nil {
		if x, y, ok := cam.Project(sc.Obstacle.Center, width, height); ok {
			fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f" fill="none" stroke="%s" stroke-width="1.5"/>
`, x, y, sc.Obstacle.Radius*scale, sphereColor)
		}
	}

	type pt struct {
		x, y int
		ok   bool
	}
	proj := make([]pt, len(sc.Positions))
	for i, p := range sc.Positions {
		x, y, ok := cam.Project(p, width, height)
		proj[i] = pt{x, y, ok}
	}

	fmt.Fprintf(&sb, "<g stroke=\"%s\" stroke-width=\"1\">\n", springColor)
	for _, s := range sc.Springs {
		if s.I >= len(proj) || s.J >= len(proj) || !proj[s.I].ok || !proj[s.J].ok {
			continue
		}
		a, b := proj[s.I], proj[s.J]
		fmt.Fprintf(&sb, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\"/>\n", a.x, a.y, b.x, b.y)
	}
	sb.WriteString("</g>\n")

	for i, p := range proj {
		if !p.ok {
			continue
		}
		color, r := freeColor, 2.0
		if i < len(sc.Fixed) && sc.Fixed[i] {
			color, r = anchorColor, 3.5
		}
		fmt.Fprintf(&sb, "<circle cx=\"%d\" cy=\"%d\" r=\"%.1f\" fill=\"%s\"/>\n", p.x, p.y, r, color)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// CanvasToSVG converts a braille canvas to SVG, one dot per lit sub-pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.PixelWidth(), canvas.PixelHeight()

	var sb strings.Builder
	header(&sb, int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale)))
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", freeColor)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, scale*0.4)
			}
		}
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// TrajectoryToSVG draws points as one polyline scaled to fit, with a 10%
// margin. It returns "" for fewer than two points.
func TrajectoryToSVG(points []analysis.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, strokeColor)
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
