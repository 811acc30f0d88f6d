package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riveredge/bulkport/internal/cli"
	"github.com/riveredge/bulkport/internal/config"
)

// setupCLITest isolates the global and project configuration and returns the
// global config directory.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvProjectDir, "")
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvTenantID, "")
	t.Setenv(config.EnvConcurrency, "")
	t.Setenv(config.EnvRetryCount, "")
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
	return home
}

// runCLI executes the root command and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// fakeBackend is an in-memory stand-in for the REST backend.
type fakeBackend struct {
	mu      sync.Mutex
	created []map[string]any
	posts   map[string]int
	reject  map[string]string
	// status overrides the 400 returned for a rejected code.
	status map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{posts: map[string]int{}, reject: map[string]string{}, status: map[string]int{}}
}

func (f *fakeBackend) postCount(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[code]
}

func (f *fakeBackend) createdCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := make([]string, 0, len(f.created))
	for _, rec := range f.created {
		codes = append(codes, rec["code"].(string))
	}
	return codes
}

func (f *fakeBackend) handler(t *testing.T, extra http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			if extra != nil {
				extra(w, r)
				return
			}
			http.NotFound(w, r)
			return
		}

		var rec map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decoding request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code, _ := rec["code"].(string)

		f.mu.Lock()
		f.posts[code]++
		msg, rejected := f.reject[code]
		status, ok := f.status[code]
		if !ok {
			status = http.StatusBadRequest
		}
		if !rejected {
			f.created = append(f.created, rec)
		}
		f.mu.Unlock()

		if rejected {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"detail": msg})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": rec})
	}
}

func (f *fakeBackend) start(t *testing.T, extra http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(f.handler(t, extra))
	t.Cleanup(server.Close)
	return server
}
