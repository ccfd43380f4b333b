package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanner(t *testing.T, status int, payload string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	mux.HandleFunc("/api/all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "lanwatch dev\n", out)
}

func TestProbe(t *testing.T) {
	srv := newScanner(t, http.StatusOK, `{"hosts": [
		{"Mac": "aa:bb:cc:00:00:01", "Name": "nas", "Now": 1, "Known": 1},
		{"Mac": "aa:bb:cc:00:00:02", "Now": 0, "Known": 0},
		{"Name": "no mac"}
	]}`)

	out, err := execute(t, "probe", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "reachable (hosts-mapping payload)")
	assert.Contains(t, out, "hosts: 2 online: 1 known: 1 skipped: 1 duplicates: 0")

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "probe", "--url", srv.URL, "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"AA:BB:CC:00:00:01"`)
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := execute(t, "probe", "--url", srv.URL, "-o", "xml")
		assert.ErrorContains(t, err, "unsupported output format")
	})
}

func TestProbeUnreachable(t *testing.T) {
	srv := newScanner(t, http.StatusServiceUnavailable, `[]`)

	_, err := execute(t, "probe", "--url", srv.URL)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "cannot connect to "+srv.URL))
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	path := t.TempDir() + "/lanwatch.yaml"
	require.NoError(t, writeFile(path, "sources:\n  - name: a\n    port: 70000\n"))

	_, err := execute(t, "serve", "--config", path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestServeFailsWhenFirstPollFails(t *testing.T) {
	srv := newScanner(t, http.StatusOK, `"not hosts"`)
	path := t.TempDir() + "/lanwatch.yaml"
	require.NoError(t, writeFile(path, "sources:\n  - name: a\n    base_url: "+srv.URL+"\n"))

	_, err := execute(t, "serve", "--config", path, "--listen", "127.0.0.1:0")
	assert.ErrorContains(t, err, "start sources")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
