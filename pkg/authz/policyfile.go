package authz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyFile is the optional YAML overlay for the compiled-in tables. It is
// read once at start-up; there is no hot reload.
type PolicyFile struct {
	Roles     map[string]RoleSpec `yaml:"roles"`
	Endpoints []EndpointSpec      `yaml:"endpoints"`
	Paths     PathSpec            `yaml:"paths"`
}

// RoleSpec declares a role's permission grants and optional hierarchy level.
type RoleSpec struct {
	Level       *int     `yaml:"level"`
	Permissions []string `yaml:"permissions"`
}

// EndpointSpec maps an exact (method, path-template) pair to a permission.
type EndpointSpec struct {
	Method     string `yaml:"method"`
	Path       string `yaml:"path"`
	Permission string `yaml:"permission"`
}

// PathSpec extends the public / admin-only / static path lists.
type PathSpec struct {
	Public    []string `yaml:"public"`
	AdminOnly []string `yaml:"admin_only"`
	Static    []string `yaml:"static"`
}

// LoadPolicyFile reads and parses a policy overlay. A missing or malformed
// file is a configuration error; callers treat it as fatal at start-up.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var policy PolicyFile
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return &policy, nil
}
