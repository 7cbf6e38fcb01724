// Package runner implements the runner pipeline (C5): a seven-step state
// machine (copy_files -> change_files -> inlet -> runner -> outlet ->
// logger) executed against a resolved unit, dispatched to a concrete
// variant (tf, bash, tofu) selected by the unit manifest's type field.
//
// Concrete variants register themselves with Register (the same
// registration-by-side-effect pattern database/sql uses for drivers),
// rather than this package importing pkg/runner/tf and pkg/runner/tofu
// directly — those subpackages import Load/Context/Base from here, so a
// direct import the other way round would cycle. See DESIGN.md's C5 entry
// for why this is the chosen realisation of the tagged-union shape
// (SPEC_FULL.md §D.3) in Go.
package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/logging"
	"github.com/cubtera/cubtera/pkg/tools"
	"github.com/cubtera/cubtera/pkg/unit"
)

// Kind is the runner variant selector parsed from manifest.type.
type Kind string

const (
	KindTf   Kind = "tf"
	KindBash Kind = "bash"
	KindTofu Kind = "tofu"
)

// ParseKind parses raw case-insensitively; an unrecognised value is a
// Critical error (spec.md §4.5: "unknown is fatal").
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(raw) {
	case "tf":
		return KindTf, nil
	case "bash":
		return KindBash, nil
	case "tofu":
		return KindTofu, nil
	default:
		return "", cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"unknown runner type %q, expected tf|bash|tofu", raw)
	}
}

// Params is the typed projection of a runner's merged param map
// (spec.md §3.7), with defaults matching the original record's serde
// defaults.
type Params struct {
	Version       string
	StateBackend  string
	RunnerCommand string
	ExtraArgs     string
	InletCommand  string
	OutletCommand string
	LockPort      string
}

// NewParams builds Params from a flat merged param map, applying defaults
// for anything absent.
func NewParams(raw map[string]string) Params {
	p := Params{
		Version:      "latest",
		StateBackend: "local",
		LockPort:     "65432",
	}
	if v, ok := raw["version"]; ok && v != "" {
		p.Version = v
	}
	if v, ok := raw["state_backend"]; ok && v != "" {
		p.StateBackend = v
	}
	if v, ok := raw["runner_command"]; ok {
		p.RunnerCommand = v
	}
	if v, ok := raw["extra_args"]; ok {
		p.ExtraArgs = v
	}
	if v, ok := raw["inlet_command"]; ok {
		p.InletCommand = v
	}
	if v, ok := raw["outlet_command"]; ok {
		p.OutletCommand = v
	}
	if v, ok := raw["lock_port"]; ok && v != "" {
		p.LockPort = v
	}
	return p
}

// GetLockPort parses LockPort, falling back to 65432 on anything invalid.
func (p Params) GetLockPort() uint16 {
	n, err := strconv.ParseUint(p.LockPort, 10, 16)
	if err != nil || n == 0 {
		return 65432
	}
	return uint16(n)
}

// Context is the shared accumulator every pipeline step annotates
// (spec.md §4.5: "copy_files: executed", "working_dir", "inlet_exit_code",
// ...). It is returned to the caller once the pipeline finishes or
// short-circuits.
type Context map[string]interface{}

// Set records a key, returning the Context for chaining.
func (c Context) Set(key string, value interface{}) Context {
	c[key] = value
	return c
}

// Load is everything a concrete Runner needs: the resolved unit, the CLI
// command tokens, the merged params, and the merged+templated state
// backend object, per spec.md §3.7.
type Load struct {
	Unit         *unit.Unit
	Command      []string
	Params       Params
	StateBackend map[string]interface{}
	Org          string
	Cfg          *config.Config
	Fs           afero.Fs
	Logger       logging.Interface
}

// Runner is the seven-step pipeline interface every concrete variant
// implements (D.3: a tagged union realised as an interface with exactly
// three concrete types).
type Runner interface {
	CopyFiles() error
	ChangeFiles() error
	Inlet() error
	RunCommand() error
	Outlet() error
	Ctx() Context
}

// Execute runs the full pipeline in order, short-circuiting on the first
// error, and returns the accumulated context. It does not log the context
// itself; the caller decides whether to log it.
func Execute(r Runner) (Context, error) {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"copy_files", r.CopyFiles},
		{"change_files", r.ChangeFiles},
		{"inlet", r.Inlet},
		{"runner", r.RunCommand},
		{"outlet", r.Outlet},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return r.Ctx(), cerrors.Wrapf(err, cerrors.CategoryRunner, cerrors.SeverityCritical,
				"runner pipeline failed at step %q", step.name)
		}
	}

	return r.Ctx(), nil
}

// Base implements the default step bodies (spec.md §4.5 "Default
// implementations"). BashRunner and TfRunner embed Base and shadow
// individual methods: BashRunner only RunCommand, TfRunner several steps.
type Base struct {
	Load *Load
	Context
}

// NewBase wraps load with a fresh Context.
func NewBase(load *Load) Base {
	return Base{Load: load, Context: Context{}}
}

// Ctx returns the accumulated pipeline context.
func (b *Base) Ctx() Context { return b.Context }

// CopyFiles deletes and rebuilds the unit's temp folder.
func (b *Base) CopyFiles() error {
	if err := b.Load.Unit.RemoveTempFolder(b.Load.Fs); err != nil {
		return err
	}
	if err := b.Load.Unit.CopyFiles(b.Load.Fs, b.Load.Cfg, b.Load.Logger); err != nil {
		return err
	}
	b.Set("copy_files", "executed")
	b.Set("working_dir", b.Load.Unit.TempFolder)
	return nil
}

// ChangeFiles is a no-op by default.
func (b *Base) ChangeFiles() error { return nil }

// Inlet runs params.InletCommand if set; a non-zero exit is fatal.
func (b *Base) Inlet() error { return b.runHook("inlet", b.Load.Params.InletCommand) }

// Outlet runs params.OutletCommand if set; a non-zero exit is fatal.
func (b *Base) Outlet() error { return b.runHook("outlet", b.Load.Params.OutletCommand) }

func (b *Base) runHook(name, cmdString string) error {
	if cmdString == "" {
		return nil
	}
	exitCode, err := tools.ExecuteCommand(cmdString, b.Load.Unit.TempFolder, b.cmdEnv())
	if err != nil {
		return err
	}
	b.Set(name, cmdString)
	b.Set(name+"_exit_code", exitCode)
	if exitCode != 0 {
		return cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"%s command %q exited %d", name, cmdString, exitCode)
	}
	return nil
}

// RunCommand executes params.RunnerCommand concatenated with the user
// command and params.ExtraArgs.
func (b *Base) RunCommand() error {
	var parts []string
	if b.Load.Params.RunnerCommand != "" {
		parts = append(parts, b.Load.Params.RunnerCommand)
	}
	parts = append(parts, b.Load.Command...)
	if b.Load.Params.ExtraArgs != "" {
		parts = append(parts, strings.Fields(b.Load.Params.ExtraArgs)...)
	}
	return b.runCommandParts(parts)
}

// runCommandParts joins parts into a command string, spawns it in the
// unit's temp folder and records its exit code under "runner_exit_code"
// and "exit_code".
func (b *Base) runCommandParts(parts []string) error {
	exitCode, err := tools.ExecuteCommand(strings.Join(parts, " "), b.Load.Unit.TempFolder, b.cmdEnv())
	if err != nil {
		return err
	}
	b.Set("runner_exit_code", exitCode)
	b.Set("exit_code", exitCode)
	return nil
}

func (b *Base) cmdEnv() []string {
	return []string{fmt.Sprintf("CUBTERA_RUNNER_CMD=%s", strings.Join(b.Load.Command, " "))}
}

var registry = map[Kind]func(*Load) Runner{}

// Register installs factory under kind. Concrete variant packages call
// this from an init() func; pkg/runner/tf and pkg/runner/tofu import this
// package, never the reverse, so registration-by-side-effect (blank
// import at the call site) is what lets RunnerBuilder dispatch to all
// three variants without a package cycle.
func Register(kind Kind, factory func(*Load) Runner) {
	registry[kind] = factory
}

// New builds the concrete Runner registered for kind.
func New(kind Kind, load *Load) (Runner, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"no runner registered for kind %q (forgot a blank import?)", kind)
	}
	return factory(load), nil
}

func init() {
	Register(KindBash, func(load *Load) Runner { return newBashRunner(load) })
}
