package offline

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) Store {
	t.Helper()
	return Store{Dir: t.TempDir()}
}

func put(t *testing.T, s Store, name string, d *Document) string {
	t.Helper()
	p, err := s.Put(name, d)
	require.NoError(t, err)
	return p
}

func panel() *Document {
	return &Document{
		Kind:        "part",
		Marking:     "501.01.00-Smm",
		Name:        "Panel",
		SheetMetal:  true,
		Projections: []string{"Развертка"},
		Variables: []Variable{
			{Name: "L", Value: 200},
			{Name: "W", Value: 100},
			{Name: "S", Value: 1.5},
		},
	}
}

func TestOpenMissing(t *testing.T) {
	e := New()
	_, err := e.Open(filepath.Join(t.TempDir(), "none.m3d"), gateway.OpenOptions{})
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Equal(t, 0, e.OpenCount())
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	_, err := New().Open("cabin.step", gateway.OpenOptions{})
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	e := New()
	e.SetAvailable(false)
	assert.ErrorIs(t, e.Ping(), gateway.ErrUnavailable)
	_, err := e.NewSheet()
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	e.SetAvailable(true)
	assert.NoError(t, e.Ping())
}

func TestVariablesAndEquations(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "panel.m3d", &Document{
		Kind: "part",
		Variables: []Variable{
			{Name: "W", Value: 1000},
			{Name: "L", Expr: "(+ W 100)"},
			{Name: "Half", Expr: "(/ L 2)"},
		},
	})

	e := New()
	u, err := e.Open(p, gateway.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	defer u.Close(true)

	ok, err := u.SetVariable("W", 1200)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = u.SetVariable("Missing", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, u.Rebuild())

	l, ok, err := u.Variable("L")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1300.0, l)

	half, _, _ := u.Variable("Half")
	assert.Equal(t, 650.0, half)
}

func TestEquationErrorFailsRebuild(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "bad.m3d", &Document{
		Kind:      "part",
		Variables: []Variable{{Name: "L", Expr: "(+ Nope 1)"}},
	})
	u, err := New().Open(p, gateway.OpenOptions{})
	require.NoError(t, err)
	defer u.Close(true)
	assert.Error(t, u.Rebuild())
}

func TestSaveAsMovesUnit(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "panel.m3d", panel())
	e := New()

	u, err := e.Open(p, gateway.OpenOptions{ReadOnly: true})
	require.NoError(t, err)
	assert.Error(t, u.Save(), "read-only unit")

	require.NoError(t, u.Top().SetMarking("901.01.00-1.5mm"))
	out := filepath.Join(t.TempDir(), "export", "panel-new.m3d")
	require.NoError(t, u.SaveAs(out))
	assert.Equal(t, out, u.Path())
	require.NoError(t, u.Close(true))
	assert.Equal(t, 0, e.OpenCount())

	saved, err := ReadDocument(out)
	require.NoError(t, err)
	assert.Equal(t, "901.01.00-1.5mm", saved.Marking)

	orig, err := ReadDocument(p)
	require.NoError(t, err)
	assert.Equal(t, "501.01.00-Smm", orig.Marking)
}

func TestComponentsAndRelink(t *testing.T) {
	s := newStore(t)
	put(t, s, "panel.m3d", panel())
	put(t, s, "frame.a3d", &Document{
		Kind: "assembly", Marking: "502.00.00", Name: "Frame",
		Components: []Component{{File: "panel.m3d", Placement: placementSlice(gateway.Translation(0, 0, 10))}},
	})
	top := put(t, s, "cabin.a3d", &Document{
		Kind: "assembly", Marking: "500.00.00", Name: "Cabin",
		Components: []Component{
			{File: "panel.m3d", Local: true, Color: 0x0000FF},
			{File: "frame.a3d", Placement: placementSlice(gateway.Translation(5, 0, 0))},
			{File: "panel.m3d", Excluded: true},
		},
	})

	e := New()
	u, err := e.Open(top, gateway.OpenOptions{})
	require.NoError(t, err)
	defer u.Close(true)

	info, err := u.Top().Info()
	require.NoError(t, err)
	assert.Equal(t, "500.00.00", info.Marking)
	assert.False(t, info.IsDetail)

	parts, err := u.Top().Parts()
	require.NoError(t, err)
	require.Len(t, parts, 3)

	pi, err := parts[0].Info()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "panel.m3d"), pi.FileName)
	assert.Equal(t, "Panel", pi.Name)
	assert.True(t, pi.IsDetail)
	assert.True(t, pi.IsLocal)
	assert.Equal(t, 0x0000FF, pi.Color)

	ex, err := parts[2].Info()
	require.NoError(t, err)
	assert.True(t, ex.Excluded)

	nested, err := parts[1].Parts()
	require.NoError(t, err)
	require.Len(t, nested, 1)
	m, err := nested[0].Placement()
	require.NoError(t, err)
	x, _, z := m.Origin()
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 10.0, z)
	assert.Error(t, nested[0].SetFileName("x.m3d"))

	moved := filepath.Join(t.TempDir(), "panel2.m3d")
	require.NoError(t, parts[0].SetFileName(moved))
	out := filepath.Join(t.TempDir(), "cabin2.a3d")
	require.NoError(t, u.SaveAs(out))

	saved, err := ReadDocument(out)
	require.NoError(t, err)
	assert.Equal(t, moved, saved.Components[0].File)
	assert.Equal(t, filepath.Join(s.Dir, "frame.a3d"), saved.Components[1].File)
}

func TestSubtract(t *testing.T) {
	s := newStore(t)
	target := put(t, s, "panel.m3d", panel())
	screw := put(t, s, "screw.m3d", &Document{
		Kind: "part", Shape: ShapeCylinder, Color: 0x00FF00,
		Variables: []Variable{{Name: "D", Value: 6}, {Name: "H", Value: 10}},
	})

	e := New(WithPlotCells(32))
	u, err := e.Open(target, gateway.OpenOptions{})
	require.NoError(t, err)
	defer u.Close(true)

	inside, err := u.AddPart(screw, gateway.Translation(50, 50, -2))
	require.NoError(t, err)
	f, err := u.Subtract([]gateway.Part{inside})
	require.NoError(t, err)
	assert.NoError(t, f.Status())

	outside, err := u.AddPart(screw, gateway.Translation(5000, 50, 0))
	require.NoError(t, err)
	miss, err := u.Subtract([]gateway.Part{outside})
	require.NoError(t, err)
	assert.Error(t, miss.Status())

	require.NoError(t, miss.SetExcluded(true))
	require.NoError(t, outside.SetExcluded(true))
	require.NoError(t, u.Rebuild())
	assert.NoError(t, miss.Status())
	require.NoError(t, u.Save())

	saved, err := ReadDocument(target)
	require.NoError(t, err)
	require.Len(t, saved.Booleans, 2)
	assert.True(t, saved.Booleans[1].Excluded)
	assert.True(t, saved.Components[1].Excluded)
}

func TestSheetWritesDXF(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "panel.m3d", panel())

	e := New(WithPlotCells(32))
	sh, err := e.NewSheet()
	require.NoError(t, err)
	defer sh.Close()

	assert.Error(t, sh.AddView(gateway.ViewSpec{Source: p, Projection: "Сверху"}))
	require.NoError(t, sh.AddView(gateway.ViewSpec{Source: p, Projection: "#Развертка", Unfold: true, Scale: 1}))
	require.NoError(t, sh.Rebuild())

	out := filepath.Join(t.TempDir(), "panel.dxf")
	require.NoError(t, sh.SaveDXF(out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

// TestPlotIsQuiet guards the terminal: plotting must not write progress
// lines to stdout while a spinner is drawing.
func TestPlotIsQuiet(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	out := t.TempDir()
	dxfErr := plotDXF(panel(), filepath.Join(out, "panel.dxf"), 16)
	svgErr := plotSVG(panel(), filepath.Join(out, "panel.pdf"), 16)
	os.Stdout = stdout
	require.NoError(t, w.Close())
	printed, err := io.ReadAll(r)
	require.NoError(t, err)

	require.NoError(t, dxfErr)
	require.NoError(t, svgErr)
	assert.Empty(t, string(printed))
	assert.FileExists(t, filepath.Join(out, "panel.dxf"))
	assert.FileExists(t, filepath.Join(out, "panel.pdf"))
}

func TestDrawingRebindAndPlot(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "panel.m3d", panel())
	dp, err := s.PutDrawing("panel.cdw", &DrawingDocument{Views: []View{
		{Name: "Main", Source: "panel.m3d", Associative: true},
		{Name: "Detail", Source: "panel.m3d", Associative: true, Hidden: true},
		{Name: "Notes"},
	}})
	require.NoError(t, err)

	e := New(WithPlotCells(32))
	d, err := e.OpenDrawing(dp)
	require.NoError(t, err)

	views, err := d.Views()
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, p, views[0].Source())
	assert.True(t, views[1].Hidden())
	assert.Error(t, views[2].SetSource(p))

	require.NoError(t, views[0].SetSource(filepath.Join(s.Dir, "gone.m3d")))
	assert.Error(t, views[0].Update())
	assert.ErrorIs(t, d.Rebuild(), gateway.ErrNotFound)
	require.NoError(t, views[0].SetSource(p))
	require.NoError(t, views[0].Update())
	require.NoError(t, d.Rebuild())

	out := t.TempDir()
	require.NoError(t, d.SaveAs(filepath.Join(out, "panel.pdf")))
	require.NoError(t, d.SaveAs(filepath.Join(out, "panel.cdw")))
	assert.Error(t, d.SaveAs(filepath.Join(out, "panel.png")))
	require.NoError(t, d.Close(true))
	assert.Equal(t, 0, e.OpenCount())

	assert.FileExists(t, filepath.Join(out, "panel.pdf"))
	copyDoc, err := ReadDrawing(filepath.Join(out, "panel.cdw"))
	require.NoError(t, err)
	assert.Len(t, copyDoc.Views, 3)
}

func TestNewAssemblySaveAs(t *testing.T) {
	s := newStore(t)
	p := put(t, s, "panel.m3d", panel())

	e := New()
	u, err := e.NewAssembly()
	require.NoError(t, err)
	assert.Error(t, u.Save())

	require.NoError(t, u.Top().SetMarking("500.00.00_42"))
	require.NoError(t, u.Top().SetName("Купе"))
	_, err = u.AddPart(p, gateway.Identity())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "500.00.00_42 - Купе.a3d")
	require.NoError(t, u.SaveAs(out))
	require.NoError(t, u.Close(true))

	doc, err := ReadDocument(out)
	require.NoError(t, err)
	assert.Equal(t, gateway.KindAssembly, doc.DocumentKind())
	require.Len(t, doc.Components, 1)
	assert.Empty(t, doc.Components[0].Placement)
}
