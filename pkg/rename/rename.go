// Package rename derives the new identity of each design node from the
// request's substitution dictionary: new designation, name and file name,
// and the paths of the artifacts exported for it.
package rename

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/subst"
)

// Conventions are the naming rules of the design store.
type Conventions struct {
	AssemblySuffix   string   // between designation and name of assembly drawings
	SheetMetalMarker string   // designation fragment marking sheet-metal details
	ThicknessKey     string   // replacement key and variable for sheet thickness
	LengthKeys       []string // keys filled from same-named variables when present in the designation
	FlatPatternExt   string
	ViewDrawingExt   string
	NativeDrawingExt string
	SideKey          string // replacement key selecting the flat-pattern projection
	UnfoldProjection string
	DrawingIndexVar  string
	MaterialFlag     string // user property marking a unit whose material follows the request
	MaterialKey      string // replacement key holding the material name
	MaterialDensity  float64
	ReworkColor      int // BGR
	FastenerColor    int // BGR
	CabinMarkingStem string
	CabinName        string
}

// DefaultConventions returns the rules of the cabin design library.
func DefaultConventions() Conventions {
	return Conventions{
		AssemblySuffix:   "СБ",
		SheetMetalMarker: "Smm",
		ThicknessKey:     "S",
		LengthKeys:       []string{"Ld", "Lw", "Lh"},
		FlatPatternExt:   ".dxf",
		ViewDrawingExt:   ".pdf",
		NativeDrawingExt: ".cdw",
		SideKey:          "Side",
		UnfoldProjection: "Развертка",
		DrawingIndexVar:  "Draw",
		MaterialFlag:     "isMaterialModified",
		MaterialKey:      "M",
		MaterialDensity:  7.85,
		ReworkColor:      0x0000FF,
		FastenerColor:    0x00FF00,
		CabinMarkingStem: "500.00.00",
		CabinName:        "Купе",
	}
}

// IsSheetMetal reports whether a designation marks a sheet-metal detail.
func (c Conventions) IsSheetMetal(designation string) bool {
	return c.SheetMetalMarker != "" && strings.Contains(designation, c.SheetMetalMarker)
}

// Cascade applies the conventions for one export directory.
type Cascade struct {
	Conventions Conventions
	ExportDir   string
}

// New returns a cascade writing below exportDir.
func New(conv Conventions, exportDir string) *Cascade {
	return &Cascade{Conventions: conv, ExportDir: exportDir}
}

// VariableSource reads unit variables; gateway.Unit satisfies it.
type VariableSource interface {
	Variable(name string) (float64, bool, error)
}

// Extend returns a copy of base with the node-local entries read from the
// unit: the sheet thickness for sheet-metal designations and any length
// key the designation mentions. Variables the unit lacks are skipped.
func (c *Cascade) Extend(n *design.Node, base *subst.Dictionary, vars VariableSource) (*subst.Dictionary, error) {
	ext := base.Clone()
	add := func(key string) error {
		v, ok, err := vars.Variable(key)
		if err != nil {
			return fmt.Errorf("read variable %s: %w", key, err)
		}
		if ok {
			ext.Set(key, subst.FormatNumber(v))
		}
		return nil
	}

	conv := c.Conventions
	if conv.IsSheetMetal(n.Designation) && conv.ThicknessKey != "" {
		if err := add(conv.ThicknessKey); err != nil {
			return nil, err
		}
	}
	for _, k := range conv.LengthKeys {
		if k != "" && strings.Contains(n.Designation, k) {
			if err := add(k); err != nil {
				return nil, err
			}
		}
	}
	return ext, nil
}

// Derive fills the New* fields and derived paths of n from dict. A node
// without a backing file gets no paths.
func (c *Cascade) Derive(n *design.Node, dict *subst.Dictionary) {
	n.NewDesignation = dict.Replace(n.Designation)
	n.NewName = dict.Replace(n.Name)

	if n.FullName == "" {
		n.NewFullName, n.DXFPath, n.PDFPath, n.NativeDrawingPath = "", "", "", ""
		return
	}

	file := dict.Replace(baseName(n.FullName))
	n.NewFullName = c.path(file)

	stem := n.NewDesignation
	if stem == "" {
		stem = strings.TrimSuffix(file, filepath.Ext(file))
	}
	n.DXFPath = c.path(stem + c.Conventions.FlatPatternExt)

	drawing := stem
	if n.HasChildren() && n.NewDesignation != "" && n.NewName != "" {
		drawing = fmt.Sprintf("%s %s - %s", n.NewDesignation, c.Conventions.AssemblySuffix, n.NewName)
	}
	n.PDFPath = c.path(drawing + c.Conventions.ViewDrawingExt)
	n.NativeDrawingPath = c.path(drawing + c.Conventions.NativeDrawingExt)
}

// Apply runs Extend and Derive for n against the open unit u and writes
// the new designation into the unit's top part.
func (c *Cascade) Apply(n *design.Node, base *subst.Dictionary, u gateway.Unit) error {
	ext, err := c.Extend(n, base, u)
	if err != nil {
		return err
	}
	c.Derive(n, ext)
	if err := u.Top().SetMarking(n.NewDesignation); err != nil {
		return fmt.Errorf("set marking %q: %w", n.NewDesignation, err)
	}
	return nil
}

func (c *Cascade) path(name string) string {
	if c.ExportDir == "" {
		return name
	}
	return filepath.Join(c.ExportDir, name)
}

// baseName strips directories written with either separator, since store
// paths may come from another platform.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
