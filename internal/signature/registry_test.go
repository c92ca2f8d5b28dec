package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/pkg/model"
)

func TestLoadRejectsBadRegex(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(Defaults()))

	err := r.Load([]model.AgentSignature{
		{
			Name: "broken",
			Detection: model.DetectionRules{
				CommandPatterns: []model.CommandPattern{{Regex: "(unclosed"}},
			},
		},
	})
	assert.Error(t, err)

	// prior registry must still be intact
	_, ok := r.Get("claude_code")
	assert.True(t, ok, "a rejected load must not clobber the previous registry")
}

func TestNamePrefixMatchProperty(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load([]model.AgentSignature{
		{Name: "sig", Detection: model.DetectionRules{ProcessNames: []string{"claude"}}},
	}))

	cases := []struct {
		name  string
		match bool
	}{
		{"claude", true},
		{"claude-cli", true},
		{"claude123", true},
		{"xclaude", false},
		{"CLAUDE", true},
	}
	for _, c := range cases {
		_, ok := r.Match(model.ProcessRecord{Name: c.name})
		assert.Equal(t, c.match, ok, "name=%q", c.name)
	}
}

func TestMatchEvaluatesInInsertionOrderAndReturnsFirstHit(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load([]model.AgentSignature{
		{Name: "first", Detection: model.DetectionRules{ProcessNames: []string{"agent"}}},
		{Name: "second", Detection: model.DetectionRules{ProcessNames: []string{"agent"}}},
	}))

	name, ok := r.Match(model.ProcessRecord{Name: "agent"})
	require.True(t, ok)
	assert.Equal(t, "first", name)
}

func TestMatchByCmdlineAndExePath(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(Defaults()))

	_, ok := r.Match(model.ProcessRecord{Name: "node", Cmdline: "/usr/bin/npx claude-code-bridge"})
	assert.True(t, ok)

	_, ok = r.Match(model.ProcessRecord{Name: "agent-runner", ExePath: "/opt/cursor/cursor"})
	assert.True(t, ok)

	_, ok = r.Match(model.ProcessRecord{Name: "bash", Cmdline: "ls -la"})
	assert.False(t, ok)
}

func TestSignatureDeterminism(t *testing.T) {
	sigs := Defaults()
	r1, r2 := NewRegistry(), NewRegistry()
	require.NoError(t, r1.Load(sigs))
	require.NoError(t, r2.Load(sigs))

	procs := []model.ProcessRecord{
		{Name: "claude"},
		{Name: "cursor", ExePath: "/opt/cursor/cursor"},
		{Name: "bash"},
	}
	for _, p := range procs {
		l1, ok1 := r1.Match(p)
		l2, ok2 := r2.Match(p)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, l1, l2)
	}
}

func TestGetAndSignaturesRoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load(Defaults()))

	sig, ok := r.Get("ollama")
	require.True(t, ok)
	assert.Equal(t, "Ollama", sig.DisplayName)

	all := r.Signatures()
	assert.Len(t, all, len(Defaults()))
}
