package protection

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tuai/tuaid/pkg/model"
)

// LoadConfigFile reads a structured-text protection config file (YAML)
// with the keys from spec.md §6: files, directories, patterns,
// include_defaults, alert_severity, prevention_mode, log_file. A malformed
// file fails the load with model.ErrConfigInvalid.
func LoadConfigFile(path string) (model.ProtectionRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ProtectionRule{}, fmt.Errorf("%w: read %s: %v", model.ErrConfigInvalid, path, err)
	}
	return LoadConfigBytes(data)
}

// LoadConfigBytes parses YAML bytes into a ProtectionRule, applying the
// documented defaults for any key left unset.
func LoadConfigBytes(data []byte) (model.ProtectionRule, error) {
	var raw struct {
		Files           []string `yaml:"files"`
		Directories     []string `yaml:"directories"`
		Patterns        []string `yaml:"patterns"`
		IncludeDefaults *bool    `yaml:"include_defaults"`
		AlertSeverity   string   `yaml:"alert_severity"`
		PreventionMode  bool     `yaml:"prevention_mode"`
		LogFile         string   `yaml:"log_file"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return model.ProtectionRule{}, fmt.Errorf("%w: %v", model.ErrConfigInvalid, err)
	}

	rule := model.ProtectionRule{
		Files:          raw.Files,
		Directories:    raw.Directories,
		Patterns:       raw.Patterns,
		IncludeDefaults: true,
		AlertSeverity:  model.SeverityCritical,
		PreventionMode: raw.PreventionMode,
		LogFile:        raw.LogFile,
	}
	if raw.IncludeDefaults != nil {
		rule.IncludeDefaults = *raw.IncludeDefaults
	}
	if raw.AlertSeverity != "" {
		switch model.Severity(raw.AlertSeverity) {
		case model.SeverityInfo, model.SeverityWarning, model.SeverityAlert, model.SeverityCritical:
			rule.AlertSeverity = model.Severity(raw.AlertSeverity)
		default:
			return model.ProtectionRule{}, fmt.Errorf("%w: unknown alert_severity %q", model.ErrConfigInvalid, raw.AlertSeverity)
		}
	}

	return rule, nil
}

// ExampleConfigYAML renders the example protection config document written
// by `tuaid --gen-protect-config`.
const ExampleConfigYAML = `# tuaid protection config
# Paths and patterns that, when touched by a tracked agent, raise a
# ProtectedAccess alert.

# Additional files to protect beyond the built-in defaults.
files: []
#  - /home/me/.config/gh/hosts.yml

# Additional directory prefixes to protect beyond the built-in defaults.
directories: []
#  - /home/me/.config/sops

# Glob patterns (matched against the cleaned absolute path).
patterns: []
#  - "**/*.pem"
#  - "**/id_*"

# Union in the built-in sensitive-file/directory list (ssh keys, shadow,
# sudoers, auth logs, ...).
include_defaults: true

# One of: info, warning, alert, critical
alert_severity: critical

# Reserved: blocking access is not implemented; this flag is parsed and
# stored but has no runtime effect.
prevention_mode: false

# Optional: also append every protected-path access to this file.
log_file: ""
`

// WriteExampleConfig writes ExampleConfigYAML to w.
func WriteExampleConfig(w *os.File) error {
	_, err := w.WriteString(ExampleConfigYAML)
	return err
}
