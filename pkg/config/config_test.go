package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestNew_Defaults(t *testing.T) {
	v := viper.New()
	BindEnv(v)

	cfg, err := New(v, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Org != "cubtera" {
		t.Fatalf("expected default org 'cubtera', got %q", cfg.Org)
	}
	if len(cfg.DimRelations) != 3 || cfg.DimRelations[0] != "dome" {
		t.Fatalf("unexpected default dim_relations: %v", cfg.DimRelations)
	}
	if !cfg.AlwaysCopyFiles {
		t.Fatal("expected always_copy_files to default to true")
	}
	if cfg.CopyPlugins {
		t.Fatal("expected copy_plugins to default to false (opt-in)")
	}
	if cfg.FileNameSeparator != ":" {
		t.Fatalf("expected default file_name_separator ':', got %q", cfg.FileNameSeparator)
	}
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("CUBTERA_CUBTERA__ORG", "acme")

	v := viper.New()
	BindEnv(v)

	cfg, err := New(v, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Org != "acme" {
		t.Fatalf("expected env override to set org to 'acme', got %q", cfg.Org)
	}
}

func TestValidate_RequiresOrgsNonEmpty(t *testing.T) {
	c := &Config{}
	if err := c.Apply(WithDefaults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Orgs = nil

	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for empty orgs")
	}
}
