// Package config implements the Cubtera configuration document: filesystem
// roots, org selection, the dimension-relation chain, storage connection
// strings, and per-unit-type runner/state overrides. A *Config is always
// constructed explicitly and passed down through constructors — there is no
// global singleton (see SPEC_FULL.md §A.2 / §D "pass a Config handle
// explicitly").
package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/cubtera/cubtera/pkg/configutils"
)

// ConfigKey is the root Viper key this document is read from.
const ConfigKey = "cubtera"

// EnvPrefix is the environment variable prefix bound by viper
// (CUBTERA_WORKSPACE_PATH, CUBTERA_DLOG_DB, CUBTERA_RUNNER__TF__VERSION, ...).
const EnvPrefix = "CUBTERA"

// Config is the full set of fields the core reads, per SPEC_FULL.md §A.2.
type Config struct {
	WorkspacePath  string `mapstructure:"workspace_path" validate:"required"`
	InventoryPath  string `mapstructure:"inventory_path"`
	UnitsPath      string `mapstructure:"units_path"`
	ModulesPath    string `mapstructure:"modules_path"`
	PluginsPath    string `mapstructure:"plugins_path"`
	TempFolderPath string `mapstructure:"temp_folder_path"`

	Org  string   `mapstructure:"org" validate:"required"`
	Orgs []string `mapstructure:"orgs" validate:"required,min=1"`

	// DimRelations is the ordered parent->child dimension-type chain; index
	// position determines "kids-of" lookup (§3.4).
	DimRelations []string `mapstructure:"dim_relations" validate:"required,min=1"`

	DB     string `mapstructure:"db"`
	DlogDB string `mapstructure:"dlog_db"`

	DlogJobUserNameEnv string `mapstructure:"dlog_job_user_name_env"`
	DlogJobNumberEnv   string `mapstructure:"dlog_job_number_env"`
	DlogJobNameEnv     string `mapstructure:"dlog_job_name_env"`

	CleanCache      bool `mapstructure:"clean_cache"`
	AlwaysCopyFiles bool `mapstructure:"always_copy_files"`

	// CopyPlugins gates the side-effectful copy of PluginsPath into
	// ~/.terraform.d/plugins. Defaults to false — see the Open Question
	// resolution making this opt-in (SPEC_FULL.md §D.4).
	CopyPlugins bool `mapstructure:"copy_plugins"`

	// Runner maps unit type ("tf"|"bash"|"tofu") to a flat string param map.
	Runner map[string]map[string]string `mapstructure:"runner"`
	// State maps backend type ("s3"|"oci"|...) to a flat string param map.
	State map[string]map[string]string `mapstructure:"state"`

	FileNameSeparator string `mapstructure:"file_name_separator"`
}

// Option configures a Config the same way logging.Option does.
type Option func(*Config) error

// Apply applies opts in order, short-circuiting on the first error.
func (c *Config) Apply(opts ...Option) error {
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(c); err != nil {
			return err
		}
	}
	return nil
}

// WithDefaults seeds every field with its documented default. It must run
// before WithViper so Viper-sourced values can override it.
func WithDefaults() Option {
	return func(c *Config) error {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}

		c.WorkspacePath = filepath.Join(home, ".cubtera", "workspace")
		c.InventoryPath = filepath.Join(c.WorkspacePath, "inventory")
		c.UnitsPath = filepath.Join(c.WorkspacePath, "units")
		c.ModulesPath = filepath.Join(c.WorkspacePath, "modules")
		c.PluginsPath = filepath.Join(c.WorkspacePath, "plugins")
		c.TempFolderPath = filepath.Join(c.WorkspacePath, "tmp")

		c.Org = "cubtera"
		c.Orgs = []string{"cubtera"}
		c.DimRelations = []string{"dome", "env", "dc"}

		c.CleanCache = false
		c.AlwaysCopyFiles = true
		c.CopyPlugins = false
		c.FileNameSeparator = ":"

		return nil
	}
}

// WithViper loads the "cubtera" Viper key over whatever defaults are
// already set. It assumes the caller has already pointed Viper at a config
// file (directly, or via WithConfigFile) and wired up environment binding.
func WithViper(v *viper.Viper) Option {
	return func(c *Config) error {
		return v.UnmarshalKey(ConfigKey, c)
	}
}

// WithConfigFile resolves configFile (following any "imports" directives,
// via pkg/configutils's DFS-with-visited-set resolver — the same
// cycle-avoidance pattern reused for dimension parent-chain protection)
// into v, ready for a subsequent WithViper call.
func WithConfigFile(v *viper.Viper, configFile string) Option {
	return func(c *Config) error {
		if configFile == "" {
			return nil
		}
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil // absent config file is not fatal; defaults + env still apply.
		}
		return configutils.ResolveAndMergeFile(v, configFile)
	}
}

// New builds a Config from defaults, an optional config file and Viper
// environment overrides, then validates it. Validation happens exactly
// once here — never inside a constructor deeper in the stack — so test
// code can build a *Config purely in memory.
func New(v *viper.Viper, configFile string) (*Config, error) {
	c := &Config{}

	if err := c.Apply(
		WithDefaults(),
		WithConfigFile(v, configFile),
		WithViper(v),
	); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

var validate = validator.New()

// Validate runs struct-tag validation over the Config.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// BindEnv wires up CUBTERA_* environment variable overrides on v, using
// "__" as the nested-key separator (CUBTERA_RUNNER__TF__VERSION ->
// runner.tf.version), per SPEC_FULL.md §A.2 / spec.md §6.6.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()
}
