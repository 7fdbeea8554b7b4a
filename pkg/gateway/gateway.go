// Package gateway defines the abstract design-unit gateway: the surface an
// external CAD engine exposes to the export pipeline. Implementations (the
// offline engine in this repository, or a bridge to a desktop CAD process)
// open documents by path, read and write variables and markings, enumerate
// component placements and produce 2D drawings. The abstraction lets the
// pipeline run against any engine without changing the rest of the system.
//
// No implementation is assumed to be thread-safe or fast. Every call is a
// blocking round-trip and callers hold at most one session at a time.
package gateway

import "errors"

var (
	// ErrUnavailable means the engine is not running or never became ready.
	ErrUnavailable = errors.New("design engine unavailable")

	// ErrBusy means another run already holds the session.
	ErrBusy = errors.New("design session busy")

	// ErrNotFound means a document or named object does not exist.
	ErrNotFound = errors.New("not found")
)

// DocumentKind distinguishes 3D documents.
type DocumentKind int

const (
	KindPart     DocumentKind = iota // single detail
	KindAssembly                     // references other units
)

func (k DocumentKind) String() string {
	switch k {
	case KindPart:
		return "part"
	case KindAssembly:
		return "assembly"
	default:
		return "unknown"
	}
}

// OpenOptions controls how a document is opened.
type OpenOptions struct {
	ReadOnly bool // never write back to the source path implicitly
	Visible  bool // show the document in the engine UI, if it has one
}

// PartInfo is a snapshot of the identifying fields of a part, read in one
// round-trip.
type PartInfo struct {
	FileName string // backing file of the placed unit
	Marking  string // designation
	Name     string
	IsLocal  bool // instance owned by the enclosing assembly
	IsDetail bool // leaf part, not a sub-assembly
	Excluded bool // suppressed in the enclosing assembly
	Color    int  // BGR
}

// Part is either the top part of an open document or a component placed in
// it. Components are themselves parts and may have components of their own.
type Part interface {
	// Info reads the identifying fields.
	Info() (PartInfo, error)

	// Property returns a named user property. ok is false when the property
	// is not defined for this part.
	Property(name string) (value string, ok bool, err error)

	// Placement returns the 4x4 placement relative to the enclosing unit.
	Placement() (Matrix, error)

	// Parts lists direct components in stored order.
	Parts() ([]Part, error)

	// SetMarking writes the designation.
	SetMarking(marking string) error

	// SetName writes the display name.
	SetName(name string) error

	// SetFileName rebinds the component to another backing file.
	SetFileName(path string) error

	// SetExcluded suppresses or restores the component.
	SetExcluded(excluded bool) error

	// SetPlacement moves the component.
	SetPlacement(m Matrix) error
}

// Feature is a modelling operation in a unit's build tree.
type Feature interface {
	// Status returns nil when the feature built cleanly.
	Status() error

	// SetExcluded suppresses or restores the feature.
	SetExcluded(excluded bool) error
}

// Unit is an open 3D document.
type Unit interface {
	// Path is the current backing file; it changes after SaveAs.
	Path() string
	Kind() DocumentKind
	Top() Part

	// Variables on the active configuration. ok is false when the unit does
	// not define the variable; SetVariable then does nothing.
	Variable(name string) (value float64, ok bool, err error)
	SetVariable(name string, value float64) (ok bool, err error)

	// Rebuild regenerates geometry after variable or reference changes.
	Rebuild() error

	// AttachedDocuments lists documents linked to the unit (drawings,
	// specifications) in stored order.
	AttachedDocuments() ([]string, error)

	// Projections lists the named projections usable by associative views.
	Projections() ([]string, error)

	// SetMaterial replaces the material of the current configuration.
	SetMaterial(name string, density float64) error

	// Sheet-metal fold state. Units without sheet-metal bodies report false.
	Unfolded() (bool, error)
	SetUnfolded(unfolded bool) error

	// AddPart inserts a unit file as a component at the given placement.
	AddPart(path string, placement Matrix) (Part, error)

	// Subtract creates one boolean difference of the given components from
	// the unit's body.
	Subtract(tools []Part) (Feature, error)

	Save() error
	SaveAs(path string) error
	Close(discard bool) error
}

// ViewSpec configures an associative view on a sheet.
type ViewSpec struct {
	Name        string
	Source      string // 3D unit file
	Projection  string // named projection; empty = engine default
	Unfold      bool   // show sheet metal developed
	Scale       float64
	CenterLines bool // generate centre lines, axes and centre markers
	BendLines   bool
	HiddenLines bool
}

// Sheet is a transient 2D document used for flat-pattern output.
type Sheet interface {
	AddView(spec ViewSpec) error
	Rebuild() error
	SaveDXF(path string) error
	Close() error
}

// View is a view inside a drawing document.
type View interface {
	Name() string
	// Associative reports whether the view is bound to a 3D source.
	Associative() bool
	Hidden() bool
	SetHidden(hidden bool) error
	Source() string
	SetSource(path string) error
	Update() error
}

// Drawing is an open 2D drawing document.
type Drawing interface {
	Path() string
	Views() ([]View, error)
	Rebuild() error
	// SaveAs writes the drawing; the format follows the path extension.
	SaveAs(path string) error
	Close(discard bool) error
}

// Gateway is the engine entry point.
type Gateway interface {
	// Ping succeeds once the engine accepts document calls.
	Ping() error

	Open(path string, opts OpenOptions) (Unit, error)
	OpenDrawing(path string) (Drawing, error)
	NewSheet() (Sheet, error)
	NewAssembly() (Unit, error)
}
