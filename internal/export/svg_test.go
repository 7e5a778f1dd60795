package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/viz"
)

func TestSceneToSVG(t *testing.T) {
	sc := viz.Scene{
		Positions: []dynamo.Vec3{dynamo.V(-1, 0, 0), dynamo.V(1, 0, 0), dynamo.V(math.NaN(), 0, 0)},
		Springs:   []dynamo.Spring{{I: 0, J: 1, RestLength: 2}, {I: 1, J: 2, RestLength: 1}},
		Fixed:     []bool{true, false, false},
		Obstacle:  &dynamo.Obstacle{Center: dynamo.V(0, 0, 0), Radius: 0.5},
	}
	cam := &viz.Camera{Span: 4, Zoom: 1}
	svg := SceneToSVG(sc, cam, 400, 200)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatal("not a complete svg document")
	}
	// 50 px per unit around (200,100)
	if !strings.Contains(svg, `<line x1="150" y1="100" x2="250" y2="100"/>`) {
		t.Errorf("spring line missing:\n%s", svg)
	}
	if n := strings.Count(svg, "<line"); n != 1 {
		t.Errorf("expected 1 line, got %d", n)
	}
	if !strings.Contains(svg, `r="25.0" fill="none"`) {
		t.Error("obstacle circle missing")
	}
	if !strings.Contains(svg, `fill="`+anchorColor+`"`) || strings.Count(svg, `fill="`+freeColor+`"`) != 1 {
		t.Error("particles not coloured by role")
	}
}

func TestSceneToSVGFitsWithoutCamera(t *testing.T) {
	sc := viz.Scene{Positions: []dynamo.Vec3{dynamo.V(10, 10, 0), dynamo.V(12, 10, 0)}}
	svg := SceneToSVG(sc, nil, 100, 100)
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("auto-fit camera should keep both particles on screen:\n%s", svg)
	}
}

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 2) != "" {
		t.Error("nil canvas should give empty output")
	}
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 2)
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("expected 2 dots:\n%s", svg)
	}
	if !strings.Contains(svg, `width="8" height="8"`) {
		t.Error("size not scaled")
	}
	if !strings.Contains(svg, `cx="7.0" cy="7.0"`) {
		t.Error("dot not placed at sub-pixel centre")
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	if TrajectoryToSVG([]analysis.Point{{X: 1, Y: 1}}, 10, 10, "red") != "" {
		t.Error("single point should give empty output")
	}
	svg := TrajectoryToSVG([]analysis.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, 120, 120, "red")
	if !strings.Contains(svg, `d="M10.0,110.0 L110.0,10.0"`) {
		t.Errorf("unexpected path:\n%s", svg)
	}
}
