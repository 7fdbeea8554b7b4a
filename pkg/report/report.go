// Package report reads and writes the persisted request record: the XML
// file a configuration session leaves behind, one <part> per design group,
// which the export consumes and annotates with the exported model path.
package report

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/liftcab/pkg/subst"
)

// DefaultFileName is used when a reports directory holds no record yet.
const DefaultFileName = "report.xml"

// OrderMark is the mark code carrying the order number.
const OrderMark = "Number"

// Report is the root <report> element.
type Report struct {
	XMLName xml.Name `xml:"report"`
	Parts   []*Part  `xml:"part"`

	path string
}

// Part is one design group of the request.
type Part struct {
	Group        string        `xml:"Group,attr"`
	PathModel    string        `xml:"PathModel,attr"`
	NewPathModel string        `xml:"NewPathModel,attr,omitempty"`
	Marks        []Mark        `xml:"Mark"`
	Dimensions   []Dimension   `xml:"Dimension"`
	OptionGroups []OptionGroup `xml:"OptionGroup"`
}

// Mark is a textual marker, e.g. an order number or a finish code.
type Mark struct {
	Name  string `xml:"name,attr"`
	Mark  string `xml:"mark,attr"`
	Value string `xml:"value,attr"`
}

// Dimension is a named numeric parameter. Dimension is the code used both
// as replacement key and as variable name.
type Dimension struct {
	Name      string `xml:"name,attr"`
	Dimension string `xml:"dimension,attr"`
	Value     string `xml:"value,attr"`
}

// OptionGroup holds the options chosen for one configurable feature.
type OptionGroup struct {
	Name    string   `xml:"name,attr"`
	ID      string   `xml:"id,attr"`
	Options []Option `xml:"Option"`
}

// Option is one chosen option with the dimensions it implies.
type Option struct {
	Name       string      `xml:"name,attr"`
	ID         string      `xml:"id,attr"`
	Dimensions []Dimension `xml:"Dimensions>Dimension"`
}

// Load reads the record at path. A missing file yields an empty record
// bound to path.
func Load(path string) (*Report, error) {
	r := &Report{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	if err := xml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// LoadLatest loads the most recently modified *.xml below dir, searching
// subdirectories. With no candidate it returns an empty record bound to
// dir/report.xml.
func LoadLatest(dir string) (*Report, error) {
	latest, err := Latest(dir)
	if err != nil {
		return nil, err
	}
	if latest == "" {
		return &Report{path: filepath.Join(dir, DefaultFileName)}, nil
	}
	return Load(latest)
}

// Latest returns the newest *.xml file below dir, or "" when there is none
// or dir does not exist.
func Latest(dir string) (string, error) {
	var (
		best    string
		bestMod int64
	)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".xml") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = p, mod
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return best, nil
}

// Path is where Save writes.
func (r *Report) Path() string { return r.path }

// Save writes the record back to the path it was loaded from.
func (r *Report) Save() error {
	if r.path == "" {
		return errors.New("report has no path")
	}
	return r.SaveAs(r.path)
}

// SaveAs writes the record to path and remembers it.
func (r *Report) SaveAs(path string) error {
	data, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	r.path = path
	return nil
}

// PartByGroup returns the first part of the group, or nil.
func (r *Report) PartByGroup(group string) *Part {
	for _, p := range r.Parts {
		if p.Group == group {
			return p
		}
	}
	return nil
}

// OrderNumber returns the value of the first mark coded "Number" across all
// parts, or "".
func (r *Report) OrderNumber() string {
	for _, p := range r.Parts {
		for _, m := range p.Marks {
			if m.Mark == OrderMark {
				return m.Value
			}
		}
	}
	return ""
}

// Replacements builds the text substitution dictionary: marks, then
// dimensions, then option dimensions. Entries with an empty key or value
// are skipped; a later entry overwrites an earlier value in place.
func (p *Part) Replacements() *subst.Dictionary {
	d := subst.New()
	for _, m := range p.Marks {
		if m.Mark != "" && m.Value != "" {
			d.Set(m.Mark, m.Value)
		}
	}
	p.eachDimension(func(dim Dimension) {
		d.Set(dim.Dimension, dim.Value)
	})
	return d
}

// Variables builds the numeric variable set from dimensions and option
// dimensions. A value that does not parse is an error for the whole part.
func (p *Part) Variables() (*subst.Variables, error) {
	v := subst.NewVariables()
	var errs []error
	p.eachDimension(func(dim Dimension) {
		f, err := subst.ParseNumber(dim.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("dimension %s = %q: not a number", dim.Dimension, dim.Value))
			return
		}
		v.Set(dim.Dimension, f)
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *Part) eachDimension(fn func(Dimension)) {
	use := func(d Dimension) {
		if d.Dimension != "" && d.Value != "" {
			fn(d)
		}
	}
	for _, d := range p.Dimensions {
		use(d)
	}
	for _, g := range p.OptionGroups {
		for _, o := range g.Options {
			for _, d := range o.Dimensions {
				use(d)
			}
		}
	}
}
