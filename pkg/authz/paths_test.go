package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathPolicyDefaults(t *testing.T) {
	p := NewPathPolicy(nil)

	t.Run("public", func(t *testing.T) {
		assert.True(t, p.IsPublic("/health"))
		assert.True(t, p.IsPublic("/metrics"))
		assert.True(t, p.IsPublic("/api/auth/login"))
		assert.True(t, p.IsPublic("/api/docs"))
		assert.False(t, p.IsPublic("/api/products"))
		assert.False(t, p.IsPublic("/healthz/extra"))
	})

	t.Run("admin only", func(t *testing.T) {
		assert.True(t, p.IsAdminOnly("/api/system/config"))
		assert.True(t, p.IsAdminOnly("/api/admin"))
		assert.False(t, p.IsAdminOnly("/api/products"))
	})

	t.Run("static exclusions", func(t *testing.T) {
		assert.True(t, p.IsStaticExclusion("/static/app.css"))
		assert.True(t, p.IsStaticExclusion("/favicon.ico"))
		assert.False(t, p.IsStaticExclusion("/api/products"))
	})
}

func TestPathPolicyOverlay(t *testing.T) {
	p := NewPathPolicy(&PolicyFile{
		Paths: PathSpec{
			Public:    []string{"/ping", "/api/webhooks/*"},
			AdminOnly: []string{"/api/billing"},
			Static:    []string{"/downloads/"},
		},
	})

	assert.True(t, p.IsPublic("/ping"))
	assert.True(t, p.IsPublic("/api/webhooks/stripe"))
	assert.False(t, p.IsPublic("/ping/deep"))
	assert.True(t, p.IsAdminOnly("/api/billing/invoices"))
	assert.True(t, p.IsStaticExclusion("/downloads/report.pdf"))

	// Defaults survive the overlay.
	assert.True(t, p.IsPublic("/health"))
	assert.True(t, p.IsAdminOnly("/api/system"))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"api", "products", "7"}, splitPath("/api/products/7"))
	assert.Equal(t, []string{"api", "products"}, splitPath("/api//products/"))
	assert.Empty(t, splitPath("/"))
	assert.Empty(t, splitPath(""))
}

func TestMatchSegments(t *testing.T) {
	template := splitPath("/api/products/{id}")

	assert.True(t, matchSegments(template, splitPath("/api/products/7")))
	assert.True(t, matchSegments(template, splitPath("/api/products/abc")))
	assert.False(t, matchSegments(template, splitPath("/api/products")))
	assert.False(t, matchSegments(template, splitPath("/api/outlets/7")))
	assert.False(t, matchSegments(template, splitPath("/api/products/7/stock")))
}
