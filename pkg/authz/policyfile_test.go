package authz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadPolicyFile(t *testing.T) {
	path := writePolicy(t, `
roles:
  AUDITOR:
    level: 3
    permissions:
      - AUDIT_READ
      - REPORTS_READ
endpoints:
  - method: POST
    path: /api/audit/export
    permission: AUDIT_WRITE
paths:
  public:
    - /ping
  admin_only:
    - /api/billing
  static:
    - /downloads/
`)

	policy, err := LoadPolicyFile(path)
	require.NoError(t, err)

	spec, ok := policy.Roles["AUDITOR"]
	require.True(t, ok)
	require.NotNil(t, spec.Level)
	assert.Equal(t, 3, *spec.Level)
	assert.Equal(t, []string{"AUDIT_READ", "REPORTS_READ"}, spec.Permissions)

	require.Len(t, policy.Endpoints, 1)
	assert.Equal(t, "POST", policy.Endpoints[0].Method)
	assert.Equal(t, "/api/audit/export", policy.Endpoints[0].Path)
	assert.Equal(t, "AUDIT_WRITE", policy.Endpoints[0].Permission)

	assert.Equal(t, []string{"/ping"}, policy.Paths.Public)
	assert.Equal(t, []string{"/api/billing"}, policy.Paths.AdminOnly)
	assert.Equal(t, []string{"/downloads/"}, policy.Paths.Static)
}

func TestLoadPolicyFileMissing(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicyFileMalformed(t *testing.T) {
	path := writePolicy(t, "roles: [not, a, map]")
	_, err := LoadPolicyFile(path)
	assert.Error(t, err)
}
