package fastener

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/gateway/offline"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	red   = 0x0000FF
	green = 0x00FF00
)

type kit struct {
	offline.Store
	Plate, Tab, Screw, Bracket, Kit string
}

// newKit builds assembly K1 holding a large red plate, a small red tab, a
// plain bracket and a sub-assembly with one green screw. The screw reaches
// into the plate but misses the tab.
func newKit(t *testing.T) kit {
	t.Helper()
	k := kit{Store: offline.Store{Dir: t.TempDir()}}
	var err error

	k.Plate, err = k.Put("P1-Smm - Plate.m3d", &offline.Document{
		Kind: "part", Marking: "P1-Smm", Name: "Plate", Color: red,
		SheetMetal: true, Projections: []string{"Развертка"},
		Variables: []offline.Variable{{Name: "L", Value: 100}, {Name: "W", Value: 60}, {Name: "S", Value: 2}},
	})
	require.NoError(t, err)
	k.Tab, err = k.Put("T1R-Smm - Tab.m3d", &offline.Document{
		Kind: "part", Marking: "T1R-Smm", Name: "Tab", Color: red,
		SheetMetal: true, Projections: []string{"R", "Развертка"},
		Variables: []offline.Variable{{Name: "L", Value: 10}, {Name: "W", Value: 10}, {Name: "S", Value: 2}},
	})
	require.NoError(t, err)
	k.Bracket, err = k.Put("BR1 - Bracket.m3d", &offline.Document{Kind: "part", Marking: "BR1", Name: "Bracket"})
	require.NoError(t, err)
	k.Screw, err = k.Put("SCR - Screw.m3d", &offline.Document{
		Kind: "part", Marking: "SCR", Name: "Screw", Shape: offline.ShapeCylinder, Color: green,
		Variables: []offline.Variable{{Name: "D", Value: 5}, {Name: "H", Value: 10}},
	})
	require.NoError(t, err)

	fixings, err := k.Put("F1 - Fixings.a3d", &offline.Document{
		Kind: "assembly", Marking: "F1", Name: "Fixings",
		Components: []offline.Component{
			{File: "SCR - Screw.m3d", Placement: translation(20, 20, 0)},
			{File: "SCR - Screw.m3d", Excluded: true},
		},
	})
	require.NoError(t, err)

	k.Kit, err = k.Put("K1 - Kit.a3d", &offline.Document{
		Kind: "assembly", Marking: "K1", Name: "Kit",
		Components: []offline.Component{
			{File: "P1-Smm - Plate.m3d"},
			{File: "P1-Smm - Plate.m3d"},
			{File: "T1R-Smm - Tab.m3d"},
			{File: "BR1 - Bracket.m3d"},
			{File: filepath.Base(fixings), Placement: translation(0, 0, -2)},
		},
	})
	require.NoError(t, err)
	return k
}

func translation(x, y, z float64) []float64 {
	m := gateway.Translation(x, y, z)
	return m[:]
}

func newEngine() (*Engine, *offline.Engine) {
	gw := offline.New(offline.WithPlotCells(24))
	return New(gateway.NewSession(gw), rename.DefaultConventions(), nil), gw
}

func scan(t *testing.T, e *Engine, path string) Classification {
	t.Helper()
	var c Classification
	err := e.Session.WithUnit(path, gateway.OpenOptions{ReadOnly: true}, func(u gateway.Unit) error {
		var err error
		c, err = e.Scan(u)
		return err
	})
	require.NoError(t, err)
	return c
}

func TestScanClassifiesByColour(t *testing.T) {
	k := newKit(t)
	e, _ := newEngine()

	c := scan(t, e, k.Kit)

	require.Len(t, c.Targets, 3)
	assert.Equal(t, k.Plate, c.Targets[0].FullName)
	assert.Equal(t, k.Tab, c.Targets[2].FullName)
	for _, n := range c.Targets {
		assert.True(t, n.NeedsRework)
		assert.False(t, n.IsFastenerModifier)
	}

	// The excluded screw inside the sub-assembly is skipped.
	require.Len(t, c.Modifiers, 1)
	m := c.Modifiers[0]
	assert.Equal(t, k.Screw, m.FullName)
	assert.True(t, m.IsFastenerModifier)
	x, y, z := m.Transform.Origin()
	assert.Equal(t, []float64{20, 20, -2}, []float64{x, y, z})
}

func TestInsertCutsReachedTargets(t *testing.T) {
	k := newKit(t)
	e, gw := newEngine()

	results := e.Insert(scan(t, e, k.Kit))
	require.Len(t, results, 2, "duplicate plate is processed once")

	plate := results[0]
	require.NoError(t, plate.Err)
	assert.Equal(t, k.Plate, plate.Path)
	assert.Equal(t, 1, plate.Inserted)
	assert.False(t, plate.Dropped)
	assert.Equal(t, filepath.Join(k.Dir, "P1-Smm.dxf"), plate.DXFPath)
	assert.FileExists(t, plate.DXFPath)

	doc, err := offline.ReadDocument(k.Plate)
	require.NoError(t, err)
	require.Len(t, doc.Components, 1)
	require.Len(t, doc.Booleans, 1)
	assert.False(t, doc.Booleans[0].Excluded)
	assert.Empty(t, doc.Booleans[0].Error)

	tab := results[1]
	require.NoError(t, tab.Err)
	assert.True(t, tab.Dropped, "screw misses the tab")
	assert.FileExists(t, filepath.Join(k.Dir, "T1R-Smm.dxf"))

	doc, err = offline.ReadDocument(k.Tab)
	require.NoError(t, err)
	require.Len(t, doc.Booleans, 1)
	assert.True(t, doc.Booleans[0].Excluded)
	assert.True(t, doc.Components[0].Excluded)

	assert.Zero(t, gw.OpenCount())
}

func TestInsertNothingToDo(t *testing.T) {
	e, _ := newEngine()
	assert.Nil(t, e.Insert(Classification{}))
}

func TestInsertFailureIsPerTarget(t *testing.T) {
	k := newKit(t)
	e, _ := newEngine()
	c := scan(t, e, k.Kit)
	require.NoError(t, os.Remove(k.Plate))

	results := e.Insert(c)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, gateway.ErrNotFound)
	assert.NoError(t, results[1].Err)
}

func TestFlatPatternProjection(t *testing.T) {
	k := newKit(t)
	e, _ := newEngine()

	tests := []struct {
		path string
		want string
	}{
		{k.Tab, "R"},
		{k.Plate, "#Развертка"},
		{k.Bracket, ""},
	}
	for _, tt := range tests {
		err := e.Session.WithUnit(tt.path, gateway.OpenOptions{ReadOnly: true}, func(u gateway.Unit) error {
			_, proj, err := e.flatPatternTarget(u)
			assert.Equal(t, tt.want, proj, tt.path)
			return err
		})
		require.NoError(t, err)
	}
}
