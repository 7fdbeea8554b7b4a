package rename

import (
	"path/filepath"
	"testing"

	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/subst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vars map[string]float64

func (v vars) Variable(name string) (float64, bool, error) {
	x, ok := v[name]
	return x, ok, nil
}

func TestSubstitutionCompleteness(t *testing.T) {
	c := New(DefaultConventions(), "")
	n := &design.Node{Designation: "500.00.00", Name: "Cabin 500"}
	c.Derive(n, subst.FromPairs("500", "900"))
	assert.Equal(t, "900.00.00", n.NewDesignation)
	assert.Equal(t, "Cabin 900", n.NewName)

	empty := &design.Node{}
	c.Derive(empty, subst.FromPairs("500", "900"))
	assert.Equal(t, "", empty.NewDesignation)
	assert.Equal(t, "", empty.NewName)
}

func TestDeriveLeafPaths(t *testing.T) {
	out := filepath.Join("exports", "A")
	c := New(DefaultConventions(), out)
	n := &design.Node{
		FullName:    `C:\lib\B1-Smm - Panel.m3d`,
		Designation: "B1-Smm",
		Name:        "Panel",
	}
	c.Derive(n, subst.FromPairs("1", "2"))

	assert.Equal(t, "B2-Smm", n.NewDesignation)
	assert.Equal(t, filepath.Join(out, "B2-Smm - Panel.m3d"), n.NewFullName)
	assert.Equal(t, filepath.Join(out, "B2-Smm.dxf"), n.DXFPath)
	assert.Equal(t, filepath.Join(out, "B2-Smm.pdf"), n.PDFPath)
	assert.Equal(t, filepath.Join(out, "B2-Smm.cdw"), n.NativeDrawingPath)
}

func TestDeriveAssemblyDrawingName(t *testing.T) {
	c := New(DefaultConventions(), "out")
	n := &design.Node{
		FullName:    "/lib/A1 - Frame.a3d",
		Designation: "A1",
		Name:        "Frame",
		Children:    []design.NodeID{1},
	}
	c.Derive(n, subst.FromPairs("1", "2"))

	assert.Equal(t, filepath.Join("out", "A2 - Frame.a3d"), n.NewFullName)
	assert.Equal(t, filepath.Join("out", "A2.dxf"), n.DXFPath)
	assert.Equal(t, filepath.Join("out", "A2 СБ - Frame.pdf"), n.PDFPath)
	assert.Equal(t, filepath.Join("out", "A2 СБ - Frame.cdw"), n.NativeDrawingPath)
}

func TestDeriveWithoutDesignationUsesFileStem(t *testing.T) {
	c := New(DefaultConventions(), "")
	n := &design.Node{FullName: "/lib/bracket 500.m3d", Name: "Bracket", Children: []design.NodeID{1}}
	c.Derive(n, subst.FromPairs("500", "900"))

	assert.Equal(t, "bracket 900.m3d", n.NewFullName)
	assert.Equal(t, "bracket 900.dxf", n.DXFPath)
	assert.Equal(t, "bracket 900.pdf", n.PDFPath, "no designation, no assembly drawing name")
	assert.Equal(t, "bracket 900.cdw", n.NativeDrawingPath)
}

func TestDeriveEmptyFullNameClearsPaths(t *testing.T) {
	c := New(DefaultConventions(), "out")
	n := &design.Node{Designation: "A1", DXFPath: "stale.dxf", PDFPath: "stale.pdf"}
	c.Derive(n, subst.New())

	assert.Equal(t, "A1", n.NewDesignation)
	assert.Empty(t, n.NewFullName)
	assert.Empty(t, n.DXFPath)
	assert.Empty(t, n.PDFPath)
	assert.Empty(t, n.NativeDrawingPath)
}

func TestPathsAllOrNothing(t *testing.T) {
	c := New(DefaultConventions(), "out")
	tr := design.New(design.Node{FullName: "/lib/A1.a3d", Designation: "A1", Name: "Frame"})
	leaf, _ := tr.AddChild(tr.Root(), design.Node{FullName: "/lib/B1.m3d", Designation: "B1", Name: "Panel"})
	missing, _ := tr.AddChild(tr.Root(), design.Node{Designation: "C1", Name: "Virtual"})

	for _, id := range []design.NodeID{leaf, missing, tr.Root()} {
		c.Derive(tr.Node(id), subst.FromPairs("1", "2"))
	}
	assert.NoError(t, design.Validate(tr))
}

func TestExtendAddsThicknessAndLengths(t *testing.T) {
	c := New(DefaultConventions(), "")
	base := subst.FromPairs("500", "900")
	n := &design.Node{Designation: "500.01.Smm-Lw"}

	ext, err := c.Extend(n, base, vars{"S": 1.5, "Lw": 1200, "Ld": 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"500", "S", "Lw"}, ext.Keys())
	s, _ := ext.Get("S")
	assert.Equal(t, "1.5", s)
	assert.Equal(t, 1, base.Len(), "base dictionary untouched")
}

func TestExtendSkipsMissingVariables(t *testing.T) {
	c := New(DefaultConventions(), "")
	ext, err := c.Extend(&design.Node{Designation: "B1-Smm"}, subst.FromPairs("1", "2"), vars{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ext.Keys())
}

type markingUnit struct {
	gateway.Unit
	top *markingPart
	v   vars
}

type markingPart struct {
	gateway.Part
	marking string
}

func (p *markingPart) SetMarking(m string) error { p.marking = m; return nil }

func (u *markingUnit) Top() gateway.Part { return u.top }
func (u *markingUnit) Variable(name string) (float64, bool, error) {
	return u.v.Variable(name)
}

func TestApplyPushesMarking(t *testing.T) {
	c := New(DefaultConventions(), "out")
	u := &markingUnit{top: &markingPart{}, v: vars{"S": 2}}
	n := &design.Node{FullName: "/lib/B1-Smm.m3d", Designation: "B1-Smm", Name: "Panel"}

	require.NoError(t, c.Apply(n, subst.FromPairs("1", "2"), u))
	assert.Equal(t, "B2-2mm", n.NewDesignation)
	assert.Equal(t, "B2-2mm", u.top.marking)
	assert.Equal(t, filepath.Join("out", "B2-2mm.dxf"), n.DXFPath)
}
