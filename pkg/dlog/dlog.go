// Package dlog implements the deployment log (C8): an audit record
// written to MongoDB after every apply/destroy, capturing the unit, its
// dimensions, who/what ran it and at which revision.
//
// Grounded on core/dlog/mod.rs's Dlog: the field set, the job_* fallback
// chain and the extended_log stdin slurp are ported algorithm-for-
// algorithm; git_sha_by_path's shell-out is replaced by pkg/tools'
// go-git-backed CommitSHA (see SPEC_FULL.md §B.3).
package dlog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/user"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/term"

	"github.com/cubtera/cubtera/pkg/cerrors"
	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/tools"
	"github.com/cubtera/cubtera/pkg/unit"
)

// Dlog is one deployment audit record, written to <org>.dlog.
type Dlog struct {
	UnitName     string            `bson:"unit_name,omitempty" json:"unit_name,omitempty"`
	StatePath    string            `bson:"state_path,omitempty" json:"state_path,omitempty"`
	Dims         map[string]string `bson:"dims,omitempty" json:"dims,omitempty"`
	JobHostName  string            `bson:"job_host_name,omitempty" json:"job_host_name,omitempty"`
	JobUserName  string            `bson:"job_user_name,omitempty" json:"job_user_name,omitempty"`
	JobNumber    string            `bson:"job_number,omitempty" json:"job_number,omitempty"`
	JobName      string            `bson:"job_name,omitempty" json:"job_name,omitempty"`
	TfCommand    string            `bson:"tf_command,omitempty" json:"tf_command,omitempty"`
	ExitCode     int               `bson:"exitcode" json:"exitcode"`
	UnitSha      string            `bson:"unit_sha,omitempty" json:"unit_sha,omitempty"`
	InventorySha string            `bson:"inventory_sha,omitempty" json:"inventory_sha,omitempty"`
	Timestamp    int64             `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	Datetime     string            `bson:"datetime,omitempty" json:"datetime,omitempty"`
	ExtendedLog  map[string]string `bson:"extended_log,omitempty" json:"extended_log,omitempty"`
}

// Build assembles a Dlog for u's most recent run, resolving job identity
// from cfg's configured env var names (falling back to the OS user, "0"
// and "undefined" respectively, per the original's job_* fallback chain)
// and git SHAs from cfg's units/inventory paths.
func Build(u *unit.Unit, command string, exitCode int, cfg *config.Config) (*Dlog, error) {
	now := time.Now()
	statePath := u.StatePath()

	d := &Dlog{
		UnitName:     u.Name,
		StatePath:    statePath,
		Dims:         splitDims(statePath),
		JobHostName:  hostname(),
		JobUserName:  envOrFallback(cfg.DlogJobUserNameEnv, osUsername()),
		JobNumber:    envOrFallback(cfg.DlogJobNumberEnv, "0"),
		JobName:      envOrFallback(cfg.DlogJobNameEnv, "undefined"),
		TfCommand:    command,
		ExitCode:     exitCode,
		UnitSha:      gitShaOrUndefined(cfg.UnitsPath),
		InventorySha: gitShaOrUndefined(cfg.InventoryPath),
		Timestamp:    now.Unix(),
		Datetime:     now.UTC().Format(time.RFC3339),
		ExtendedLog:  readExtendedLog(),
	}

	return d, nil
}

// Put inserts d into <org>.dlog, connecting to cfg.DlogDB fresh for this
// single insert (the original's db_connect is a one-shot connection too;
// there is no long-lived pool held across runner invocations).
func (d *Dlog) Put(ctx context.Context, cfg *config.Config, org string) error {
	if cfg.DlogDB == "" {
		return cerrors.New(cerrors.CategoryDeploymentLog, cerrors.SeverityHigh, "dlog_db is not configured")
	}

	clientOpts := options.Client().ApplyURI(cfg.DlogDB)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return cerrors.Wrapf(err, cerrors.CategoryDeploymentLog, cerrors.SeverityHigh, "connecting to dlog DB")
	}
	defer client.Disconnect(ctx)

	col := client.Database(org).Collection("dlog")
	if _, err := col.InsertOne(ctx, d); err != nil {
		return cerrors.Wrapf(err, cerrors.CategoryDeploymentLog, cerrors.SeverityHigh, "inserting dlog record")
	}
	return nil
}

// splitDims turns a unit's "type:name/type:name" state path into a
// dimType->name map, matching the original's split('/').split(':').
func splitDims(statePath string) map[string]string {
	if statePath == "" {
		return nil
	}
	dims := map[string]string{}
	for _, part := range strings.Split(statePath, "/") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		dims[kv[0]] = kv[1]
	}
	return dims
}

func envOrFallback(envName, fallback string) string {
	if envName == "" {
		return fallback
	}
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		return v
	}
	return fallback
}

func osUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "undefined"
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return ""
}

func gitShaOrUndefined(path string) string {
	sha, err := tools.CommitSHA(path)
	if err != nil {
		return "undefined"
	}
	return sha
}

// readExtendedLog slurps a JSON object off stdin when stdin is piped (not
// a TTY), matching the original's isatty-gated read. A non-object or
// malformed payload is skipped rather than treated as fatal.
func readExtendedLog() map[string]string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil
	}
	trimmed := strings.ReplaceAll(strings.TrimSpace(string(raw)), "\n", " ")
	if trimmed == "" {
		return nil
	}

	var extended map[string]string
	if err := json.Unmarshal([]byte(trimmed), &extended); err != nil {
		return nil
	}
	return extended
}
