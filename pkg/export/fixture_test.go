package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/gateway/offline"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/report"
	"github.com/chazu/liftcab/pkg/subst"
	"github.com/stretchr/testify/require"
)

// cabinStore is the two-level fixture: assembly A1 "Cab" holding the
// sheet-metal leaf B1-Smm "Panel", each with an attached drawing.
type cabinStore struct {
	offline.Store
	A, B         string
	ADraw, BDraw string
}

func newCabinStore(t *testing.T) cabinStore {
	t.Helper()
	s := cabinStore{Store: offline.Store{Dir: filepath.Join(t.TempDir(), "lib")}}

	var err error
	s.B, err = s.Put("B1-Smm - Panel.m3d", panelDoc())
	require.NoError(t, err)
	s.BDraw, err = s.PutDrawing("B1-Smm.cdw", &offline.DrawingDocument{Views: []offline.View{
		{Name: "Main", Source: "B1-Smm - Panel.m3d", Associative: true},
		{Name: "Flat", Source: "B1-Smm - Panel.m3d", Associative: true, Hidden: true, Unfold: true},
	}})
	require.NoError(t, err)

	s.A, err = s.Put("A1 - Cab.a3d", &offline.Document{
		Kind:    "assembly",
		Marking: "A1",
		Name:    "Cab",
		Components: []offline.Component{
			{File: "B1-Smm - Panel.m3d", Local: true},
			{File: "B1-Smm - Panel.m3d", Local: true},
		},
		Drawings: []string{"A1 СБ.cdw"},
	})
	require.NoError(t, err)
	s.ADraw, err = s.PutDrawing("A1 СБ.cdw", &offline.DrawingDocument{Views: []offline.View{
		{Name: "Assembly", Source: "A1 - Cab.a3d", Associative: true},
	}})
	require.NoError(t, err)
	return s
}

func panelDoc() *offline.Document {
	return &offline.Document{
		Kind:        "part",
		Marking:     "B1-Smm",
		Name:        "Panel",
		SheetMetal:  true,
		Projections: []string{"Спереди", "Развертка"},
		Properties:  map[string]string{"isMaterialModified": "1"},
		Variables: []offline.Variable{
			{Name: "L", Value: 100},
			{Name: "W", Value: 60},
			{Name: "Area", Expr: "(* L W)"},
		},
		Drawings: []string{"B1-Smm.cdw", "B1-Smm.spw"},
	}
}

func newEngine() *offline.Engine {
	return offline.New(offline.WithPlotCells(24))
}

func fastReady() gateway.ReadyPolicy {
	return gateway.ReadyPolicy{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
}

func testContext(out string, kv ...string) RequestContext {
	return RequestContext{
		Replacements: subst.FromPairs(kv...),
		Variables:    subst.NewVariables(),
		ExportDir:    out,
	}
}

func testExporter(e *offline.Engine) *Exporter {
	x := NewExporter(gateway.NewSession(e), rename.DefaultConventions(), nil)
	x.Ready = fastReady()
	return x
}

func writeReport(t *testing.T, dir string, parts ...*report.Part) *report.Report {
	t.Helper()
	r := &report.Report{Parts: parts}
	require.NoError(t, r.SaveAs(filepath.Join(dir, "request.xml")))
	return r
}
