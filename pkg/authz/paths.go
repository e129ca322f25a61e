package authz

import "strings"

// PathPolicy classifies request paths ahead of permission resolution:
// public paths need no principal, admin-only paths need the ADMIN role
// regardless of any permission match, and static exclusions bypass the
// authorization chain entirely without being logged as authz events.
type PathPolicy struct {
	publicExact    map[string]struct{}
	publicPrefixes []string
	adminPrefixes  []string
	staticPrefixes []string
}

// NewPathPolicy builds the default path classification, overlaid by the
// optional policy file. The public list is small and fixed: health checks,
// auth entry points, API docs, and the error UI route.
func NewPathPolicy(policy *PolicyFile) *PathPolicy {
	p := &PathPolicy{
		publicExact: map[string]struct{}{
			"/health":  {},
			"/healthz": {},
			"/metrics": {},
			"/error":   {},
		},
		publicPrefixes: []string{
			"/api/auth/",
			"/api/docs",
		},
		adminPrefixes: []string{
			"/api/system",
			"/api/admin",
		},
		staticPrefixes: []string{
			"/static/",
			"/assets/",
			"/favicon.ico",
		},
	}

	if policy != nil {
		for _, path := range policy.Paths.Public {
			if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "*") {
				p.publicPrefixes = append(p.publicPrefixes, strings.TrimSuffix(path, "*"))
			} else {
				p.publicExact[path] = struct{}{}
			}
		}
		p.adminPrefixes = append(p.adminPrefixes, policy.Paths.AdminOnly...)
		p.staticPrefixes = append(p.staticPrefixes, policy.Paths.Static...)
	}
	return p
}

// IsPublic reports whether the path may be served without a principal.
func (p *PathPolicy) IsPublic(path string) bool {
	if _, ok := p.publicExact[path]; ok {
		return true
	}
	for _, prefix := range p.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsAdminOnly reports whether the path requires the ADMIN role. This gate
// is evaluated before permission resolution, so a conflicting category
// match can never widen access on an admin path.
func (p *PathPolicy) IsAdminOnly(path string) bool {
	for _, prefix := range p.adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsStaticExclusion reports whether the path bypasses the chain silently.
func (p *PathPolicy) IsStaticExclusion(path string) bool {
	for _, prefix := range p.staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// splitPath breaks a path into its non-empty segments.
func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// matchSegments matches a path against a template structurally: a {var}
// template segment matches any single path segment, literal segments match
// exactly. Values are never inspected.
func matchSegments(template, path []string) bool {
	if len(template) != len(path) {
		return false
	}
	for i, seg := range template {
		if isTemplateVar(seg) {
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

func isTemplateVar(segment string) bool {
	return len(segment) >= 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}
