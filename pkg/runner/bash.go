package runner

import (
	"strings"

	"github.com/cubtera/cubtera/pkg/cerrors"
)

// BashRunner inherits every default pipeline step except RunCommand, which
// it specialises to invoke params.RunnerCommand with the user command and
// extra args appended — grounded on the original's bash runner, whose only
// override was its run() method (runner/bash/mod.rs).
type BashRunner struct {
	Base
}

func newBashRunner(load *Load) *BashRunner {
	return &BashRunner{Base: NewBase(load)}
}

// RunCommand spawns params.RunnerCommand (fatal if unset) with the user
// command and params.ExtraArgs appended.
func (r *BashRunner) RunCommand() error {
	if r.Load.Params.RunnerCommand == "" {
		return cerrors.New(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"bash runner requires runner_command (path to the bash binary)")
	}

	parts := append([]string{r.Load.Params.RunnerCommand}, r.Load.Command...)
	if r.Load.Params.ExtraArgs != "" {
		parts = append(parts, strings.Fields(r.Load.Params.ExtraArgs)...)
	}

	return r.Base.runCommandParts(parts)
}
