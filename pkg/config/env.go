package config

import "strings"

// newEnvReplacer maps Viper's dot-separated nested keys (runner.tf.version)
// to the double-underscore environment variable form
// (CUBTERA_RUNNER__TF__VERSION) documented in spec.md §6.6.
func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "__")
}
