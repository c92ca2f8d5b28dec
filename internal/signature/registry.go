// Package signature compiles AgentSignature rules and matches processes
// against them.
package signature

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tuai/tuaid/pkg/model"
)

// compiled holds a signature plus its pre-built case-insensitive regexes.
type compiled struct {
	sig         model.AgentSignature
	cmdRegexes  []*regexp.Regexp
	exeRegexes  []*regexp.Regexp
}

func compileSignature(sig model.AgentSignature) (compiled, error) {
	c := compiled{sig: sig}
	for _, p := range sig.Detection.CommandPatterns {
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			return compiled{}, fmt.Errorf("signature %q: command pattern %q: %w", sig.Name, p.Regex, err)
		}
		c.cmdRegexes = append(c.cmdRegexes, re)
	}
	for _, p := range sig.Detection.ExePatterns {
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			return compiled{}, fmt.Errorf("signature %q: exe pattern %q: %w", sig.Name, p.Regex, err)
		}
		c.exeRegexes = append(c.exeRegexes, re)
	}
	return c, nil
}

// matches reports whether process p matches this signature, per spec.md §4.1:
// name match (case-insensitive prefix-containment either direction), OR
// any cmdline regex, OR any exe-path regex.
func (c compiled) matches(p model.ProcessRecord) bool {
	nameLower := strings.ToLower(p.Name)
	for _, want := range c.sig.Detection.ProcessNames {
		target := strings.ToLower(want)
		if nameLower == target || strings.HasPrefix(nameLower, target) || strings.HasPrefix(target, nameLower) {
			return true
		}
	}

	if p.Cmdline != "" {
		cmdLower := strings.ToLower(p.Cmdline)
		for _, re := range c.cmdRegexes {
			if re.MatchString(cmdLower) {
				return true
			}
		}
	}

	if p.ExePath != "" {
		exeLower := strings.ToLower(p.ExePath)
		for _, re := range c.exeRegexes {
			if re.MatchString(exeLower) {
				return true
			}
		}
	}

	return false
}

// Registry holds compiled signatures. It is read-mostly after Load: a
// Registry value is safe for concurrent reads from many goroutines, and
// Load itself takes a write lock.
type Registry struct {
	mu         sync.RWMutex
	signatures []compiled
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Load compiles every signature in sigs and, if all compile cleanly,
// replaces the registry's contents atomically. On any regex error the
// whole load is rejected (model.ErrSignatureLoad) and the prior registry
// is left untouched.
func (r *Registry) Load(sigs []model.AgentSignature) error {
	compiledSigs := make([]compiled, 0, len(sigs))
	for _, sig := range sigs {
		c, err := compileSignature(sig)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrSignatureLoad, err)
		}
		compiledSigs = append(compiledSigs, c)
	}

	r.mu.Lock()
	r.signatures = compiledSigs
	r.mu.Unlock()
	return nil
}

// Add compiles and appends a single signature without disturbing the rest
// of the registry; it fails the same way Load does on a bad regex.
func (r *Registry) Add(sig model.AgentSignature) error {
	c, err := compileSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSignatureLoad, err)
	}
	r.mu.Lock()
	r.signatures = append(r.signatures, c)
	r.mu.Unlock()
	return nil
}

// Match evaluates rules in insertion order and returns the name of the
// first matching signature, or ("", false).
func (r *Registry) Match(p model.ProcessRecord) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.signatures {
		if c.matches(p) {
			return c.sig.Name, true
		}
	}
	return "", false
}

// Get returns the signature registered under name.
func (r *Registry) Get(name string) (model.AgentSignature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.signatures {
		if c.sig.Name == name {
			return c.sig, true
		}
	}
	return model.AgentSignature{}, false
}

// Signatures returns a snapshot slice of every loaded signature, in
// insertion order.
func (r *Registry) Signatures() []model.AgentSignature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentSignature, len(r.signatures))
	for i, c := range r.signatures {
		out[i] = c.sig
	}
	return out
}
