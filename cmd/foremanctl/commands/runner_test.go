package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// setConnectionFlags points the global connection flags at a test server and
// restores them afterwards.
func setConnectionFlags(t *testing.T, url string) {
	t.Helper()
	oldServer, oldUser, oldPass, oldJournal := serverURL, username, password, journalPath
	serverURL, username, password, journalPath = url, "admin", "changeme", ""
	t.Cleanup(func() {
		serverURL, username, password, journalPath = oldServer, oldUser, oldPass, oldJournal
	})
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestRunManifestConvergedEntityIsNoop(t *testing.T) {
	var mutations int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			mutations++
			_, _ = w.Write([]byte(`{"id": 7}`))
			return
		}
		switch r.URL.Path {
		case "/api/v2/organizations":
			// The index view omits description, as index views do.
			_, _ = w.Write([]byte(`{"results": [{"id": 7, "name": "ACME"}]}`))
		case "/api/v2/organizations/7":
			_, _ = w.Write([]byte(`{"id": 7, "name": "ACME", "description": "West coast"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	setConnectionFlags(t, server.URL)

	path := writeManifest(t, `
version: 1
entries:
  - resource: organizations
    state: present
    entity:
      name: ACME
      description: West coast
`)

	r, err := newRunner(context.Background(), false)
	if err != nil {
		t.Fatalf("failed to build runner: %v", err)
	}
	defer r.close()

	outcomes, err := r.runManifest(context.Background(), path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Changed {
		t.Errorf("converged entity reported changed=true (diff=%v)", outcomes[0].Diff)
	}
	if mutations != 0 {
		t.Errorf("converged entity issued %d mutating calls, expected none", mutations)
	}
}

func TestRunManifestNestedTitleLookup(t *testing.T) {
	var searches []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/hostgroups" && r.Method == http.MethodGet:
			search := r.URL.Query().Get("search")
			searches = append(searches, search)
			switch search {
			case `title="base/web"`:
				_, _ = w.Write([]byte(`{"results": [{"id": 3, "name": "web", "title": "base/web"}]}`))
			case `title="base"`:
				_, _ = w.Write([]byte(`{"results": [{"id": 2, "name": "base", "title": "base"}]}`))
			default:
				_, _ = w.Write([]byte(`{"results": []}`))
			}
		case r.URL.Path == "/api/v2/hostgroups/3" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"id": 3, "name": "web", "title": "base/web", "parent_id": 2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	setConnectionFlags(t, server.URL)

	path := writeManifest(t, `
version: 1
entries:
  - resource: hostgroups
    state: present
    entity:
      name: web
      parent: base
`)

	r, err := newRunner(context.Background(), false)
	if err != nil {
		t.Fatalf("failed to build runner: %v", err)
	}
	defer r.close()

	outcomes, err := r.runManifest(context.Background(), path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(searches) == 0 || searches[0] != `title="base/web"` {
		t.Fatalf("expected current-entity lookup by full title, got searches %v", searches)
	}
	if outcomes[0].Changed {
		t.Errorf("converged nested entity reported changed=true (diff=%v)", outcomes[0].Diff)
	}
}
