// Package tf implements TfRunner (C6): the Terraform/OpenTofu pipeline
// specialisation that materialises the backend config and dimension vars
// as HCL, resolves or downloads a pinned terraform binary, and runs it
// under a TCP-port init lock.
//
// Grounded on tf/mod.rs's TfRunner: copy_files, change_files and runner
// are ported algorithm-for-algorithm; create_state_backend and
// json_to_hcl are replaced by pkg/runner/tf/backend's hclwrite-based
// emitter per SPEC_FULL.md §B.2.
package tf

import (
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/dlog"
	"github.com/cubtera/cubtera/pkg/runner"
	"github.com/cubtera/cubtera/pkg/runner/tf/backend"
	"github.com/cubtera/cubtera/pkg/runner/tf/tfswitch"
	"github.com/cubtera/cubtera/pkg/tools"
)

func init() {
	runner.Register(runner.KindTf, func(load *runner.Load) runner.Runner { return New(load) })
}

// TfRunner specialises copy_files/change_files/runner; inlet/outlet stay
// the Base defaults.
type TfRunner struct {
	runner.Base
}

// New wraps load in a fresh TfRunner.
func New(load *runner.Load) *TfRunner {
	return &TfRunner{Base: runner.NewBase(load)}
}

var runnerCommandsNeedingVars = map[string]bool{
	"plan": true, "apply": true, "destroy": true, "refresh": true,
}

// CopyFiles rebuilds the temp workspace and backend file on "init", or
// refreshes it only when always_copy_files is set — otherwise it requires
// a prior init to have run.
func (r *TfRunner) CopyFiles() error {
	load := r.Load
	firstCommand := ""
	if len(load.Command) > 0 {
		firstCommand = load.Command[0]
	}

	if firstCommand == "init" {
		if err := load.Unit.RemoveTempFolder(load.Fs); err != nil {
			return err
		}
		if err := load.Unit.CopyFiles(load.Fs, load.Cfg, load.Logger); err != nil {
			return err
		}
		r.Set("copy_files", "executed")
		r.Set("working_dir", load.Unit.TempFolder)
		return r.createStateBackend()
	}

	exists, err := afero.DirExists(load.Fs, load.Unit.TempFolder)
	if err != nil {
		return err
	}
	if !exists {
		return cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
			"can't find unit temp folder %s, run init first", load.Unit.TempFolder)
	}

	if load.Cfg.AlwaysCopyFiles {
		if err := load.Unit.CopyFiles(load.Fs, load.Cfg, load.Logger); err != nil {
			return err
		}
		r.Set("copy_files", "executed")
		if err := r.createStateBackend(); err != nil {
			return err
		}
	}
	r.Set("working_dir", load.Unit.TempFolder)
	return nil
}

// createStateBackend runs the optional preflight check (soft-fail) and
// writes cubtera_backend.tf.
func (r *TfRunner) createStateBackend() error {
	load := r.Load

	for backendType, cfg := range load.StateBackend {
		child, _ := cfg.(map[string]interface{})
		if err := backend.RunPreflight(context.Background(), backendType, child); err != nil {
			load.Logger.Warnf("state backend preflight check failed: %v", err)
		}
	}

	return backend.WriteStateBackendFile(load.Fs, filepath.Join(load.Unit.TempFolder, "cubtera_backend.tf"), load.StateBackend)
}

// ChangeFiles turns every cubtera_*.json file (not already
// .auto.tfvars.json) into a Terraform auto-var file, and emits a
// placeholder `variable` block per discovered top-level key into
// cubtera_vars.tf.
func (r *TfRunner) ChangeFiles() error {
	load := r.Load
	fs := load.Fs

	entries, err := afero.ReadDir(fs, load.Unit.TempFolder)
	if err != nil {
		return err
	}

	var candidates []string
	keySet := map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		if !strings.HasPrefix(stem, "cubtera_") || strings.Contains(stem, ".auto.tfvars") {
			continue
		}

		raw, err := afero.ReadFile(fs, filepath.Join(load.Unit.TempFolder, name))
		if err != nil {
			return err
		}
		obj, err := tools.DecodeJSONObject(raw)
		if err != nil {
			return cerrors.Wrapf(err, cerrors.CategoryRunner, cerrors.SeverityHigh,
				"decoding %s as a JSON object", name)
		}
		for k := range obj {
			keySet[k] = true
		}

		candidates = append(candidates, name)
	}

	if len(keySet) > 0 {
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		if err := backend.WriteGeneratedVarsFile(fs, filepath.Join(load.Unit.TempFolder, "cubtera_vars.tf"), keys); err != nil {
			return err
		}
	}

	for _, name := range candidates {
		stem := strings.TrimSuffix(name, ".json")
		newName := stem + ".auto.tfvars.json"
		if err := fs.Rename(filepath.Join(load.Unit.TempFolder, name), filepath.Join(load.Unit.TempFolder, newName)); err != nil {
			return cerrors.Wrapf(err, cerrors.CategoryRunner, cerrors.SeverityCritical,
				"renaming %s to %s", name, newName)
		}
	}

	return nil
}

// RunCommand resolves the terraform binary, builds var args for required
// and present-optional manifest-declared env vars, acquires the init lock
// for "init", runs terraform, records the exit code, conditionally audits
// via Dlog, and conditionally cleans the temp folder. Terraform inherits
// the whole process environment plus TF_VAR_org_name, TF_VAR_unit_name,
// TF_IN_AUTOMATION=true and TF_INPUT=0; no variable is filtered out.
func (r *TfRunner) RunCommand() error {
	load := r.Load

	var tfArgs []string
	firstCommand := ""
	if len(load.Command) > 0 {
		firstCommand = load.Command[0]
	}
	if runnerCommandsNeedingVars[firstCommand] {
		exists, err := afero.DirExists(load.Fs, load.Unit.TempFolder)
		if err != nil {
			return err
		}
		if !exists {
			return cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
				"can't find unit temp folder %s, run init first", load.Unit.TempFolder)
		}
		varArgs, err := r.manifestVarArgs()
		if err != nil {
			return err
		}
		tfArgs = append(tfArgs, varArgs...)
	}

	tfPath, err := r.resolveBinary()
	if err != nil {
		return err
	}

	if load.Params.ExtraArgs != "" {
		tfArgs = append(tfArgs, strings.Fields(load.Params.ExtraArgs)...)
	}

	var unlock func()
	if firstCommand == "init" {
		unlock, err = r.acquireInitLock()
		if err != nil {
			return err
		}
	}

	args := append(append([]string{}, load.Command...), tfArgs...)
	exitCode, err := tools.ExecuteCommand(tfPath+" "+strings.Join(args, " "), load.Unit.TempFolder, r.tfEnv())
	if unlock != nil {
		unlock()
	}
	if err != nil {
		return err
	}

	if load.Cfg.DlogDB != "" && (firstCommand == "apply" || firstCommand == "destroy") {
		d, buildErr := dlog.Build(load.Unit, firstCommand, exitCode, load.Cfg)
		if buildErr != nil {
			load.Logger.Warnf("can't build dlog record: %v", buildErr)
		} else if putErr := d.Put(context.Background(), load.Cfg, load.Org); putErr != nil {
			load.Logger.Warnf("can't put dlog to DB: %v", putErr)
		} else {
			load.Logger.Infof("dlog data was saved")
		}
	}

	if !load.Cfg.CleanCache {
		r.Set("exit_code", exitCode)
		return nil
	}

	if exitCode == 0 && (firstCommand == "apply" || contains(load.Command, "--detailed-exitcode")) {
		if err := load.Unit.RemoveTempFolder(load.Fs); err != nil {
			load.Logger.Warnf("failed to clean up temp folder: %v", err)
		}
	}

	r.Set("exit_code", exitCode)
	return nil
}

func (r *TfRunner) resolveBinary() (string, error) {
	load := r.Load

	if load.Params.RunnerCommand != "" {
		return tools.StringToPath(load.Params.RunnerCommand)
	}
	return tfswitch.Switch(load.Params.Version)
}

func (r *TfRunner) manifestVarArgs() ([]string, error) {
	var args []string
	load := r.Load
	if load.Unit.Manifest.Spec == nil || load.Unit.Manifest.Spec.EnvVars == nil {
		return nil, nil
	}
	envVars := load.Unit.Manifest.Spec.EnvVars

	for logical, envName := range envVars.Required {
		val, ok := os.LookupEnv(envName)
		if !ok {
			return nil, cerrors.Newf(cerrors.CategoryRunner, cerrors.SeverityCritical,
				"required environment variable %s is not set", envName)
		}
		args = append(args, "-var", logical+"="+val)
	}
	for logical, envName := range envVars.Optional {
		if val, ok := os.LookupEnv(envName); ok {
			args = append(args, "-var", logical+"="+val)
		}
	}
	return args, nil
}

// acquireInitLock binds the TCP init-lock port, retrying with a
// randomised 800-1200ms delay on failure, and returns a func that
// releases it.
func (r *TfRunner) acquireInitLock() (func(), error) {
	port := r.Load.Params.GetLockPort()
	addr := "0.0.0.0:" + strconv.Itoa(int(port))

	for {
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { listener.Close() }, nil
		}
		r.Load.Logger.Debugf("waiting for unlock while init runs in parallel")
		time.Sleep(time.Duration(800+rand.Intn(400)) * time.Millisecond)
	}
}

func (r *TfRunner) tfEnv() []string {
	load := r.Load
	env := []string{
		"TF_VAR_org_name=" + load.Org,
		"TF_VAR_unit_name=" + load.Unit.Name,
		"TF_IN_AUTOMATION=true",
		"TF_INPUT=0",
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TF_VAR_") {
			env = append(env, kv)
		}
	}
	return env
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
