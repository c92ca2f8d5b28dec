// Package protection implements the protected-path policy (C5): deciding
// whether a path is sensitive and at what severity.
package protection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/tuai/tuaid/pkg/model"
)

// DefaultProtectedFiles are the built-in sensitive files unioned in when
// IncludeDefaults is true.
var DefaultProtectedFiles = []string{
	"/etc/passwd",
	"/etc/shadow",
	"/etc/sudoers",
	"/etc/ssh/sshd_config",
	"/etc/hosts",
	"/etc/resolv.conf",
	"/etc/crontab",
	homePath(".ssh/authorized_keys"),
	homePath(".ssh/id_rsa"),
	homePath(".ssh/id_ed25519"),
	homePath(".bashrc"),
	homePath(".bash_history"),
	"/var/log/auth.log",
	"/var/log/secure",
}

// DefaultProtectedDirs are the built-in sensitive directory prefixes
// unioned in when IncludeDefaults is true.
var DefaultProtectedDirs = []string{
	"/etc/ssh",
	homePath(".ssh"),
	homePath(".gnupg"),
	"/etc/pam.d",
	"/etc/security",
}

func homePath(suffix string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "/root"
	}
	return filepath.Join(home, suffix)
}

// Policy evaluates a ProtectionRule against candidate paths. Rebuild must
// be called after any mutation of the rule sets (spec.md §4.5,
// "Rebuild-on-edit"); Policy does this itself inside the Add* helpers and
// SetRule.
type Policy struct {
	mu sync.RWMutex

	rule model.ProtectionRule

	exactFiles map[string]struct{}
	dirs       []string
	globs      []glob.Glob
}

// New returns a Policy with the given rule already built.
func New(rule model.ProtectionRule) *Policy {
	p := &Policy{}
	p.SetRule(rule)
	return p
}

// SetRule replaces the active rule set and rebuilds the lookup structure.
func (p *Policy) SetRule(rule model.ProtectionRule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rule = rule
	p.rebuildLocked()
}

// Rebuild re-derives the internal lookup structure from the current rule.
// Exposed so callers that mutate Rule() in place (rare) can force a
// refresh.
func (p *Policy) Rebuild() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuildLocked()
}

func (p *Policy) rebuildLocked() {
	exact := make(map[string]struct{}, len(p.rule.Files)+len(DefaultProtectedFiles))
	for _, f := range p.rule.Files {
		exact[filepath.Clean(f)] = struct{}{}
	}

	dirs := make([]string, 0, len(p.rule.Directories)+len(DefaultProtectedDirs))
	for _, d := range p.rule.Directories {
		dirs = append(dirs, filepath.Clean(d))
	}

	if p.rule.IncludeDefaults {
		for _, f := range DefaultProtectedFiles {
			exact[filepath.Clean(f)] = struct{}{}
		}
		for _, d := range DefaultProtectedDirs {
			dirs = append(dirs, filepath.Clean(d))
		}
	}

	globs := make([]glob.Glob, 0, len(p.rule.Patterns))
	for _, pat := range p.rule.Patterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			continue // malformed individual pattern: skip, don't fail the whole rebuild
		}
		globs = append(globs, g)
	}

	p.exactFiles = exact
	p.dirs = dirs
	p.globs = globs
}

// IsProtected reports whether path matches an exact file, a protected
// directory prefix, or a glob pattern.
func (p *Policy) IsProtected(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clean := filepath.Clean(path)
	if _, ok := p.exactFiles[clean]; ok {
		return true
	}
	for _, dir := range p.dirs {
		if clean == dir || strings.HasPrefix(clean, dir+string(filepath.Separator)) {
			return true
		}
	}
	for _, g := range p.globs {
		if g.Match(clean) {
			return true
		}
	}
	return false
}

// Severity returns the configured alert severity for this policy.
func (p *Policy) Severity() model.Severity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.rule.AlertSeverity == "" {
		return model.SeverityCritical
	}
	return p.rule.AlertSeverity
}

// Rule returns a copy of the active rule.
func (p *Policy) Rule() model.ProtectionRule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rule
}

// AddFile adds a single file to the protection list and rebuilds.
func (p *Policy) AddFile(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rule.Files = append(p.rule.Files, path)
	p.rebuildLocked()
}

// AddDirectory adds a single directory prefix and rebuilds.
func (p *Policy) AddDirectory(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rule.Directories = append(p.rule.Directories, path)
	p.rebuildLocked()
}

// AddPattern adds a glob pattern and rebuilds.
func (p *Policy) AddPattern(pattern string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rule.Patterns = append(p.rule.Patterns, pattern)
	p.rebuildLocked()
}

// Count returns the number of protected entries (files + dirs + patterns),
// after default expansion.
func (p *Policy) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.exactFiles) + len(p.dirs) + len(p.globs)
}

// Default returns a Policy built from the zero-value rule with
// IncludeDefaults set and critical severity, matching the defaults
// LoadConfigBytes applies to keys left unset.
func Default() *Policy {
	return New(model.ProtectionRule{
		IncludeDefaults: true,
		AlertSeverity:   model.SeverityCritical,
	})
}

// Describe renders a one-line human summary of the active policy.
func (p *Policy) Describe() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("%d protected paths (severity=%s, prevention_mode=%v)",
		len(p.exactFiles)+len(p.dirs)+len(p.globs), p.rule.AlertSeverity, p.rule.PreventionMode)
}
