package cli

import _ "embed"

// defaultConfigurationContent carries the config.yaml fallback compiled into
// the binary so the CLI runs without any on-disk configuration.
//
//go:embed default_config.yaml
var defaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded default
// configuration along with its Viper type identifier.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return append([]byte(nil), defaultConfigurationContent...), configurationTypeConstant
}
