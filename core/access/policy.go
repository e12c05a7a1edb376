package access

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/routes.schema.json
var policySchemaFS embed.FS

const policySchemaFile = "schema/routes.schema.json"

// PolicyEntry maps a path prefix to the requirements a caller must meet.
// Entries are defined at startup and never mutated afterwards.
type PolicyEntry struct {
	Prefix      string   `yaml:"prefix" json:"prefix"`
	Role        string   `yaml:"role" json:"role"`
	Tiers       []string `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Platform    string   `yaml:"platform,omitempty" json:"platform,omitempty"`
	// LocalOK marks the route as accepting local-only token validation
	// (no authority round trip). Takes effect only when the gateway is
	// started with local verification allowed.
	LocalOK bool `yaml:"local_ok,omitempty" json:"local_ok,omitempty"`

	requiredRole Role
}

// RequiredRole returns the parsed minimum role for the entry.
func (e *PolicyEntry) RequiredRole() Role { return e.requiredRole }

type policyFile struct {
	Version string        `yaml:"version" json:"version,omitempty"`
	Routes  []PolicyEntry `yaml:"routes" json:"routes"`
}

// Table is the static route policy, matched in declared order.
type Table struct {
	entries []PolicyEntry
}

// LoadTable reads, schema-validates and compiles the YAML policy file.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route policy: %w", err)
	}
	return parseTable(raw)
}

func parseTable(raw []byte) (*Table, error) {
	// Validate the document shape first so typos (unknown keys, bad role
	// names) surface as schema errors, then decode into the typed form.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse route policy: %w", err)
	}
	if err := validatePolicyDocument(doc); err != nil {
		return nil, err
	}
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse route policy: %w", err)
	}
	return NewTable(file.Routes)
}

// NewTable compiles policy entries, rejecting malformed or duplicate
// prefixes. Declared order is match order.
func NewTable(entries []PolicyEntry) (*Table, error) {
	seen := make(map[string]struct{}, len(entries))
	compiled := make([]PolicyEntry, 0, len(entries))
	for i, entry := range entries {
		entry.Prefix = strings.TrimSpace(entry.Prefix)
		if !strings.HasPrefix(entry.Prefix, "/") {
			return nil, fmt.Errorf("route %d: prefix %q must start with /", i, entry.Prefix)
		}
		prefix := strings.TrimRight(entry.Prefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		if _, dup := seen[prefix]; dup {
			return nil, fmt.Errorf("route %d: duplicate prefix %q", i, entry.Prefix)
		}
		seen[prefix] = struct{}{}
		entry.Prefix = prefix

		role, known := ParseRole(entry.Role)
		if !known {
			return nil, fmt.Errorf("route %d (%s): unknown role %q", i, entry.Prefix, entry.Role)
		}
		entry.requiredRole = role

		if entry.Platform != "" {
			entry.Platform = strings.ToLower(strings.TrimSpace(entry.Platform))
			if !knownPlatform(entry.Platform) {
				return nil, fmt.Errorf("route %d (%s): unknown platform %q", i, entry.Prefix, entry.Platform)
			}
		}
		compiled = append(compiled, entry)
	}
	return &Table{entries: compiled}, nil
}

// Match returns the first entry whose prefix covers the path, in declared
// order. Prefixes match on segment boundaries: /admin covers /admin and
// /admin/users but not /administrator.
func (t *Table) Match(path string) (*PolicyEntry, bool) {
	if t == nil {
		return nil, false
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	for i := range t.entries {
		entry := &t.entries[i]
		if entry.Prefix == "/" {
			return entry, true
		}
		if path == entry.Prefix || strings.HasPrefix(path, entry.Prefix+"/") {
			return entry, true
		}
	}
	return nil, false
}

// Len returns the number of compiled entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func knownPlatform(platform string) bool {
	for _, p := range KnownPlatforms {
		if platform == p {
			return true
		}
	}
	return false
}

func validatePolicyDocument(doc any) error {
	schema, err := policySchemaFS.ReadFile(policySchemaFile)
	if err != nil {
		return fmt.Errorf("read policy schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("routes.schema.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("add policy schema: %w", err)
	}
	compiled, err := compiler.Compile("routes.schema.json")
	if err != nil {
		return fmt.Errorf("compile policy schema: %w", err)
	}
	// Round-trip through JSON so the validator sees plain maps with
	// string keys regardless of what the YAML decoder produced.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize route policy: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("normalize route policy: %w", err)
	}
	if err := compiled.Validate(normalized); err != nil {
		return fmt.Errorf("route policy schema: %w", err)
	}
	return nil
}
