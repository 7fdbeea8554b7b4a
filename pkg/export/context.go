package export

import "github.com/chazu/liftcab/pkg/subst"

// RequestContext is the per-part input of a run. It is not modified during
// the run; node-local additions go to clones of Replacements.
type RequestContext struct {
	Replacements *subst.Dictionary
	Variables    *subst.Variables
	ExportDir    string
}
