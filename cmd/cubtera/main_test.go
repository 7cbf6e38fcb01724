package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCommandTreeRegistersEveryTopLevelSubcommand(t *testing.T) {
	root := &cobra.Command{Use: "cubtera"}
	root.AddCommand(newImCommand())
	root.AddCommand(newLogCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigCommand())

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["im"])
	assert.True(t, names["log"])
	assert.True(t, names["run"])
	assert.True(t, names["config"])
}

func TestImCommandRegistersEveryOp(t *testing.T) {
	im := newImCommand()
	names := map[string]bool{}
	for _, c := range im.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"dimTypes", "dims", "dimsData", "dim", "dimDefaults", "dimParent", "dimsByParent", "orgs"} {
		assert.True(t, names[want], "missing im op %q", want)
	}
}

func TestLogCommandRegistersGet(t *testing.T) {
	logCmd := newLogCommand()
	names := map[string]bool{}
	for _, c := range logCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["get"])
}

func TestConfigCommandHasCfgAlias(t *testing.T) {
	cfg := newConfigCommand()
	assert.Contains(t, cfg.Aliases, "cfg")
}
