package protection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/pkg/model"
)

func TestDefaultPolicyProtectsSensitivePaths(t *testing.T) {
	p := Default()
	assert.True(t, p.IsProtected("/etc/passwd"))
	assert.True(t, p.IsProtected("/etc/ssh/sshd_config"))
	assert.True(t, p.IsProtected("/etc/ssh/ssh_config.d/extra"), "directory-prefix match")
	assert.False(t, p.IsProtected("/home/me/project/main.go"))
}

func TestIsProtectedExactDirGlob(t *testing.T) {
	p := New(model.ProtectionRule{
		Files:       []string{"/secrets/api.key"},
		Directories: []string{"/secrets/vault"},
		Patterns:    []string{"**/*.pem"},
	})

	assert.True(t, p.IsProtected("/secrets/api.key"))
	assert.True(t, p.IsProtected("/secrets/vault/nested/thing"))
	assert.True(t, p.IsProtected("/any/dir/cert.pem"))
	assert.False(t, p.IsProtected("/secrets/not-protected.txt"))
}

func TestRebuildOnEdit(t *testing.T) {
	p := New(model.ProtectionRule{})
	assert.False(t, p.IsProtected("/secrets/new.key"))

	p.AddFile("/secrets/new.key")
	assert.True(t, p.IsProtected("/secrets/new.key"), "AddFile must rebuild the lookup immediately")
}

func TestLoadConfigBytesDefaults(t *testing.T) {
	rule, err := LoadConfigBytes([]byte(`files: ["/x"]`))
	require.NoError(t, err)
	assert.True(t, rule.IncludeDefaults)
	assert.Equal(t, model.SeverityCritical, rule.AlertSeverity)
	assert.Equal(t, []string{"/x"}, rule.Files)
}

func TestLoadConfigBytesMalformedFails(t *testing.T) {
	_, err := LoadConfigBytes([]byte("not: valid: yaml: : ["))
	assert.ErrorIs(t, err, model.ErrConfigInvalid)
}

func TestLoadConfigBytesBadSeverityFails(t *testing.T) {
	_, err := LoadConfigBytes([]byte(`alert_severity: "extreme"`))
	assert.ErrorIs(t, err, model.ErrConfigInvalid)
}
