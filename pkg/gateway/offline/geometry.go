package offline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Body defaults in mm when a unit lacks the driving variable.
const (
	defaultLength    = 100.0
	defaultWidth     = 100.0
	defaultThickness = 1.0
	defaultDiameter  = 5.0
	defaultHeight    = 10.0
)

// DefaultPlotCells is the marching-squares resolution for flat output.
const DefaultPlotCells = 200

var errNoGeometry = errors.New("no geometry")

// body builds the solid of a part without its booleans. Boxes have their
// minimum corner at the origin; cylinders stand on the origin along Z.
func body(d *Document) (sdf.SDF3, error) {
	switch d.Shape {
	case ShapeCylinder:
		h := d.varOr("H", defaultHeight)
		s, err := sdf.Cylinder3D(h, d.varOr("D", defaultDiameter)/2, 0)
		if err != nil {
			return nil, err
		}
		return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: h / 2})), nil
	case ShapeBox, "":
		x, y, z := d.varOr("L", defaultLength), d.varOr("W", defaultWidth), d.varOr("S", defaultThickness)
		s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
		if err != nil {
			return nil, err
		}
		return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})), nil
	}
	return nil, fmt.Errorf("unknown shape %q", d.Shape)
}

// placed returns the solid of a component moved to its placement. Only
// the translation part is honoured.
func placed(c Component) (sdf.SDF3, error) {
	doc, err := ReadDocument(c.File)
	if err != nil {
		return nil, err
	}
	s, err := solid(doc)
	if err != nil {
		return nil, err
	}
	x, y, z := placementMatrix(c.Placement).Origin()
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})), nil
}

// solid builds the full solid of a document: a part body minus its active
// booleans, or for an assembly the union of its visible components.
func solid(d *Document) (sdf.SDF3, error) {
	if d.DocumentKind() == gateway.KindAssembly {
		var parts []sdf.SDF3
		for _, c := range d.Components {
			if c.Excluded {
				continue
			}
			s, err := placed(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return nil, errNoGeometry
		}
		return sdf.Union3D(parts...), nil
	}

	s, err := body(d)
	if err != nil {
		return nil, err
	}
	for _, b := range d.Booleans {
		if b.Excluded || b.Error != "" {
			continue
		}
		tools, err := toolUnion(d, b.Tools)
		if err != nil {
			return nil, err
		}
		s = sdf.Difference3D(s, tools)
	}
	return s, nil
}

func toolUnion(d *Document, idx []int) (sdf.SDF3, error) {
	var tools []sdf.SDF3
	for _, i := range idx {
		if i < 0 || i >= len(d.Components) {
			return nil, fmt.Errorf("boolean tool %d out of range", i)
		}
		c := d.Components[i]
		if c.Excluded {
			continue
		}
		s, err := placed(c)
		if err != nil {
			return nil, err
		}
		tools = append(tools, s)
	}
	if len(tools) == 0 {
		return nil, errNoGeometry
	}
	return sdf.Union3D(tools...), nil
}

// checkBoolean reports why a difference would not change the body: the
// tools are missing or none of them reaches it.
func checkBoolean(d *Document, b Boolean) error {
	target, err := body(d)
	if err != nil {
		return err
	}
	tools, err := toolUnion(d, b.Tools)
	if err != nil {
		return fmt.Errorf("boolean tools: %w", err)
	}
	if !overlaps(target.BoundingBox(), tools.BoundingBox()) {
		return errors.New("boolean tools do not intersect the body")
	}
	return nil
}

func overlaps(a, b sdf.Box3) bool {
	return a.Min.X < b.Max.X && b.Min.X < a.Max.X &&
		a.Min.Y < b.Max.Y && b.Min.Y < a.Max.Y &&
		a.Min.Z < b.Max.Z && b.Min.Z < a.Max.Z
}

// section cuts s parallel to XY through the middle of its bounding box,
// which for a developed sheet is the flat pattern outline.
func section(s sdf.SDF3) sdf.SDF2 {
	bb := s.BoundingBox()
	mid := (bb.Min.Z + bb.Max.Z) / 2
	return sdf.Slice2D(s, v3.Vec{X: 0, Y: 0, Z: mid}, v3.Vec{X: 0, Y: 0, Z: 1})
}

// svgLineStyle matches the stroke sdfx uses for its own SVG output.
const svgLineStyle = "fill:none;stroke:black;stroke-width:0.1"

// plotDXF writes the section of a document as DXF outlines.
func plotDXF(d *Document, path string, cells int) error {
	return plot(d, path, cells, func(lines []*sdf.Line2) error {
		return render.SaveDXF(path, lines)
	})
}

// plotSVG writes the section of a document as SVG outlines.
func plotSVG(d *Document, path string, cells int) error {
	return plot(d, path, cells, func(lines []*sdf.Line2) error {
		return render.SaveSVG(path, svgLineStyle, lines)
	})
}

// lineBuffer collects rendered segments so they can be saved without the
// progress output of the render.To* helpers.
type lineBuffer struct {
	lines []*sdf.Line2
}

func (b *lineBuffer) Write(in []*sdf.Line2) error {
	b.lines = append(b.lines, in...)
	return nil
}

func (b *lineBuffer) Close() error { return nil }

func plot(d *Document, path string, cells int, save func([]*sdf.Line2) error) error {
	s, err := solid(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf lineBuffer
	render.NewMarchingSquaresQuadtree(cells).Render(section(s), &buf)
	if err := save(buf.lines); err != nil {
		return fmt.Errorf("plot %s: %w", path, err)
	}
	return nil
}
