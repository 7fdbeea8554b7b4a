package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/report"
)

// CabinMarking returns the marking of the composed cabin for an order.
func CabinMarking(conv rename.Conventions, order string) string {
	if order == "" {
		return conv.CabinMarkingStem
	}
	return conv.CabinMarkingStem + "_" + order
}

// ComposeCabin builds a top assembly holding every exported part of rep at
// the origin and saves it in exportDir as "{marking} - {name}.a3d". Parts
// without an existing exported model are left out. It returns the saved
// path.
func ComposeCabin(s *gateway.Session, rep *report.Report, conv rename.Conventions, exportDir string) (path string, err error) {
	release, err := s.Acquire()
	if err != nil {
		return "", err
	}
	defer release()

	marking := CabinMarking(conv, rep.OrderNumber())
	u, err := s.Gateway().NewAssembly()
	if err != nil {
		return "", fmt.Errorf("new assembly: %w", err)
	}
	defer func() {
		if cerr := u.Close(true); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	top := u.Top()
	if err := top.SetMarking(marking); err != nil {
		return "", err
	}
	if err := top.SetName(conv.CabinName); err != nil {
		return "", err
	}

	added := 0
	for _, p := range rep.Parts {
		if p.NewPathModel == "" {
			continue
		}
		if _, err := os.Stat(p.NewPathModel); err != nil {
			continue
		}
		if _, err := u.AddPart(p.NewPathModel, gateway.Identity()); err != nil {
			return "", fmt.Errorf("insert %s: %w", p.Group, err)
		}
		added++
	}
	if added == 0 {
		return "", errors.New("no exported parts to compose")
	}
	if err := u.Rebuild(); err != nil {
		return "", err
	}

	path = filepath.Join(exportDir, fmt.Sprintf("%s - %s.a3d", marking, conv.CabinName))
	if err := u.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}
