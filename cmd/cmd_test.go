package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vulncorr/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(resetFlags)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags puts every flag of the command tree back to its default so
// values and Changed state do not leak between executions.
func resetFlags() {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func inventory(t *testing.T, vulns string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/servers":
			fmt.Fprint(w, `[{"hostname":"h1","ip":"10.0.0.1","os":"linux","osVersion":"20.04"}]`)
		case "/vulns":
			fmt.Fprint(w, vulns)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	cfg := config.Default()
	cfg.ServersURL = baseURL + "/servers"
	cfg.VulnerabilitiesURL = baseURL + "/vulns"
	cfg.RulesPath = filepath.Join(dir, "rules.csv")
	cfg.OutputPath = filepath.Join(dir, "logfile.log")
	require.NoError(t, os.WriteFile(cfg.RulesPath, nil, 0o644))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path
}

func TestRunWritesAlertLog(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `[{"name":"CVE-1","risk":"high","affects":"linux_20.04"}]`)
	cfgPath := writeConfig(t, dir, srv.URL)

	out, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(dir, "logfile.log"))
	require.NoError(t, err)
	assert.Equal(t, "vulnerability CVE-1 with risk high discovered on h1 10.0.0.1\n", string(data))
	assert.Contains(t, out, "Findings: 1")
}

func TestRunWithoutFindingsRemovesAlertLog(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `[{"name":"CVE-1","risk":"high","affects":"windows_10"}]`)
	cfgPath := writeConfig(t, dir, srv.URL)
	logPath := filepath.Join(dir, "logfile.log")
	require.NoError(t, os.WriteFile(logPath, []byte("old\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.csv"), []byte("server,os,eq,linux\n"), 0o644))

	_, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)

	_, err = os.Stat(logPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunMissingRulesFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `[{"name":"CVE-1","risk":"high","affects":"linux_20.04"}]`)
	cfgPath := writeConfig(t, dir, srv.URL)
	require.NoError(t, os.Remove(filepath.Join(dir, "rules.csv")))
	logPath := filepath.Join(dir, "logfile.log")
	require.NoError(t, os.WriteFile(logPath, []byte("previous run\n"), 0o644))

	_, err := execute(t, "run", "--config", cfgPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(data))
}

func TestRunEmptyRulesPathRunsUnfiltered(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `[{"name":"CVE-1","risk":"high","affects":"linux_20.04"}]`)
	cfgPath := writeConfig(t, dir, srv.URL)
	_, err := execute(t, "config", "set", "rules_path", "", "--config", cfgPath)
	require.NoError(t, err)

	_, err = execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "logfile.log"))
	assert.NoError(t, err)
}

func TestRunRulesFlag(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `[{"name":"CVE-1","risk":"high","affects":"linux_20.04"}]`)
	cfgPath := writeConfig(t, dir, srv.URL)
	rulesPath := filepath.Join(dir, "prod.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("- {target: vulnerability, field: risk, op: eq, value: \"low\"}\n"), 0o644))

	t.Run("with flag", func(t *testing.T) {
		out, err := execute(t, "run", "--config", cfgPath, "--rules", rulesPath, "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "Findings: 0")
		assert.NotContains(t, out, "vulnerability CVE-1")
	})

	// the flag does not carry over into the next execution
	assert.False(t, runCmd.Flags().Changed("rules"))
	assert.False(t, dryRun)
}

func TestRunSourceFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	srv := inventory(t, `not json`)
	cfgPath := writeConfig(t, dir, srv.URL)

	_, err := execute(t, "run", "--config", cfgPath)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "logfile.log"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRulesCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.csv")
	require.NoError(t, os.WriteFile(path, []byte("server,os,eq,linux\nvulnerability,risk,gt,b\nrouter,a,eq,b\n"), 0o644))

	out, err := execute(t, "rules", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "server rules: 1")
	assert.Contains(t, out, `1. risk gt "b"`)
	assert.Contains(t, out, "ignored rules (unknown target): 1")
}

func TestConfigSetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "config", "set", "auth_token", "s3cret", "--config", path)
	require.NoError(t, err)

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "s3cret")
}

func TestRunSetupKeepsDefaultsOnEmptyAnswers(t *testing.T) {
	cfg := config.Default()
	in := strings.NewReader("http://inv/servers\n\ntoken\n\n/var/log/alerts.log\n")
	var out bytes.Buffer

	require.NoError(t, runSetup(in, &out, cfg))
	assert.Equal(t, "http://inv/servers", cfg.ServersURL)
	assert.Equal(t, config.Default().VulnerabilitiesURL, cfg.VulnerabilitiesURL)
	assert.Equal(t, "token", cfg.AuthToken)
	assert.Equal(t, "/var/log/alerts.log", cfg.OutputPath)
}
