package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const validManifest = `
version: 1
entries:
  - resource: organizations
    state: present
    entity:
      name: ACME
      description: umbrella corp
  - resource: activation_keys
    state: present
    scope:
      organization: ACME
    entity:
      name: rhel-key
      unlimited_hosts: true
`

func TestParseValidManifest(t *testing.T) {
	m, err := NewLoader().Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(m.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Entries))
	}
	first := m.Entries[0]
	if first.Resource != "organizations" || first.State != "present" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.Entity["name"] != "ACME" {
		t.Errorf("entity fields not parsed: %v", first.Entity)
	}
	second := m.Entries[1]
	if second.Scope["organization"] != "ACME" {
		t.Errorf("scope not parsed: %v", second.Scope)
	}
	if second.Entity["unlimited_hosts"] != true {
		t.Errorf("boolean field not parsed: %v", second.Entity)
	}
}

func TestParseRejectsMissingEntity(t *testing.T) {
	doc := `
version: 1
entries:
  - resource: organizations
    state: present
`
	if _, err := NewLoader().Parse([]byte(doc)); err == nil {
		t.Fatal("expected validation error for entry without entity")
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	doc := `
version: 2
entries:
  - resource: organizations
    state: present
    entity:
      name: ACME
`
	if _, err := NewLoader().Parse([]byte(doc)); err == nil {
		t.Fatal("expected validation error for unsupported version")
	}
}

func TestParseRejectsEmptyEntries(t *testing.T) {
	if _, err := NewLoader().Parse([]byte("version: 1\nentries: []\n")); err == nil {
		t.Fatal("expected validation error for empty entries")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	if err := os.WriteFile(path, []byte(validManifest), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	m, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(m.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(m.Entries))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := NewLoader().Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
