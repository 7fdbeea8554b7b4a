package export

import (
	"errors"
	"fmt"

	"github.com/chazu/liftcab/pkg/design"
)

// ErrMissingSource means a request part names a model file that does not
// exist. The part is skipped.
var ErrMissingSource = errors.New("source model missing")

// Stage names the step of node processing that failed.
type Stage string

const (
	StageOpen       Stage = "open"
	StageReferences Stage = "references"
	StageVariables  Stage = "variables"
	StageRename     Stage = "rename"
	StageMaterial   Stage = "material"
	StageRelink     Stage = "relink"
	StageSave       Stage = "save"
	StageArtifacts  Stage = "artifacts"
	StageClose      Stage = "close"
	StageDone       Stage = "done"
)

// NodeError wraps a failure while processing one node.
type NodeError struct {
	Node  design.NodeID
	Name  string
	Stage Stage
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Name, e.Stage, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
