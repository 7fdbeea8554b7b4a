package offline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/liftcab/pkg/gateway"
	"gopkg.in/yaml.v3"
)

// File extensions understood by the engine.
const (
	ExtPart     = ".m3d"
	ExtAssembly = ".a3d"
	ExtDrawing  = ".cdw"
	ExtDXF      = ".dxf"
	ExtPDF      = ".pdf"
)

// Body shapes.
const (
	ShapeBox      = "box"      // L x W x S
	ShapeCylinder = "cylinder" // diameter D, height H
)

// Variable is one entry of a unit's variable table. A variable with Expr is
// recomputed on every rebuild from the variables above it.
type Variable struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
	Expr  string  `yaml:"expr,omitempty"`
}

// Material is the active material of a unit.
type Material struct {
	Name    string  `yaml:"name"`
	Density float64 `yaml:"density"`
}

// Component places another unit file inside this one.
type Component struct {
	File       string            `yaml:"file"`
	Local      bool              `yaml:"local,omitempty"`
	Excluded   bool              `yaml:"excluded,omitempty"`
	Color      int               `yaml:"color,omitempty"`
	Placement  []float64         `yaml:"placement,omitempty"` // 16 values, row-major
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Boolean subtracts the listed components from the unit body.
type Boolean struct {
	Tools    []int  `yaml:"tools"` // component indices
	Excluded bool   `yaml:"excluded,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// Document is the on-disk form of a part or assembly.
type Document struct {
	Kind        string            `yaml:"kind"` // "part" or "assembly"
	Marking     string            `yaml:"marking,omitempty"`
	Name        string            `yaml:"name,omitempty"`
	Local       bool              `yaml:"local,omitempty"`
	Color       int               `yaml:"color,omitempty"`
	Shape       string            `yaml:"shape,omitempty"`
	SheetMetal  bool              `yaml:"sheet_metal,omitempty"`
	Unfolded    bool              `yaml:"unfolded,omitempty"`
	Material    *Material         `yaml:"material,omitempty"`
	Properties  map[string]string `yaml:"properties,omitempty"`
	Variables   []Variable        `yaml:"variables,omitempty"`
	Projections []string          `yaml:"projections,omitempty"`
	Drawings    []string          `yaml:"drawings,omitempty"`
	Components  []Component       `yaml:"components,omitempty"`
	Booleans    []Boolean         `yaml:"booleans,omitempty"`
}

// DocumentKind maps the Kind field.
func (d *Document) DocumentKind() gateway.DocumentKind {
	if d.Kind == "assembly" {
		return gateway.KindAssembly
	}
	return gateway.KindPart
}

func (d *Document) variable(name string) (*Variable, bool) {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i], true
		}
	}
	return nil, false
}

func (d *Document) varOr(name string, def float64) float64 {
	if v, ok := d.variable(name); ok {
		return v.Value
	}
	return def
}

// View is one view of a drawing document.
type View struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source,omitempty"`
	Associative bool   `yaml:"associative,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty"`
	Projection  string `yaml:"projection,omitempty"`
	Unfold      bool   `yaml:"unfold,omitempty"`
}

// DrawingDocument is the on-disk form of a drawing.
type DrawingDocument struct {
	Title string `yaml:"title,omitempty"`
	Views []View `yaml:"views"`
}

// ReadDocument loads a part or assembly. Component and drawing paths are
// resolved against the document's directory.
func ReadDocument(path string) (*Document, error) {
	var d Document
	if err := readYAML(path, &d); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range d.Components {
		d.Components[i].File = resolve(dir, d.Components[i].File)
	}
	for i := range d.Drawings {
		d.Drawings[i] = resolve(dir, d.Drawings[i])
	}
	return &d, nil
}

// WriteDocument stores d at path, creating parent directories.
func WriteDocument(path string, d *Document) error {
	return writeYAML(path, d)
}

// ReadDrawing loads a drawing document. View sources are resolved against
// the drawing's directory.
func ReadDrawing(path string) (*DrawingDocument, error) {
	var d DrawingDocument
	if err := readYAML(path, &d); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range d.Views {
		if d.Views[i].Source != "" {
			d.Views[i].Source = resolve(dir, d.Views[i].Source)
		}
	}
	return &d, nil
}

// WriteDrawing stores d at path.
func WriteDrawing(path string, d *DrawingDocument) error {
	return writeYAML(path, d)
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, gateway.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(dir, p))
}

func hasExt(path string, exts ...string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func placementMatrix(p []float64) gateway.Matrix {
	if len(p) != 16 {
		return gateway.Identity()
	}
	var m gateway.Matrix
	copy(m[:], p)
	return m
}

func placementSlice(m gateway.Matrix) []float64 {
	if m == gateway.Identity() {
		return nil
	}
	return append([]float64(nil), m[:]...)
}
