package offline

import "path/filepath"

// Store writes documents under a root directory. Relative names are joined
// to Dir; the returned path is what Open expects.
type Store struct {
	Dir string
}

// Put writes a part or assembly document.
func (s Store) Put(name string, d *Document) (string, error) {
	p := filepath.Join(s.Dir, name)
	return p, WriteDocument(p, d)
}

// PutDrawing writes a drawing document.
func (s Store) PutDrawing(name string, d *DrawingDocument) (string, error) {
	p := filepath.Join(s.Dir, name)
	return p, WriteDrawing(p, d)
}
