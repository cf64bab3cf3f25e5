package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of cmd and its children to its default
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// testEnv gives a test fresh config and data directories
type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	return &testEnv{configDir: t.TempDir(), dataDir: t.TempDir()}
}

// run executes the root command with args and returns its stdout
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(bytes.NewReader(nil))
	rootCmd.SetArgs(append([]string{"--config", e.configDir, "--data", e.dataDir}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// mustRun is run that fails the test on error
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "butterfly %v", args)
	return out
}

// modsRoot creates a game folder and points the settings at its Mods folder
func (e *testEnv) modsRoot(t *testing.T) string {
	t.Helper()
	managed := filepath.Join(t.TempDir(), "Hollow Knight", "hollow_knight_Data", "Managed")
	require.NoError(t, os.MkdirAll(managed, 0755))
	root := filepath.Join(managed, "Mods")
	e.mustRun(t, "settings", "path", root)
	return root
}

func (e *testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte(content), 0644))
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "butterfly", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)

	for _, name := range []string{"config", "config-file", "data", "verbose", "json", "no-color"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"install", "enable", "disable", "uninstall", "list", "sync", "update", "profile", "settings", "api", "readme", "history", "tui"} {
		assert.Contains(t, names, want)
	}
}

func TestGetServiceConfig_Defaults(t *testing.T) {
	resetFlags(rootCmd)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := getServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "butterfly"), cfg.ConfigDir)
	assert.Equal(t, filepath.Join(home, ".local", "share", "Butterfly"), cfg.DataDir)
	assert.Empty(t, cfg.ConfigFile)
}

func TestGetServiceConfig_ConfigFile(t *testing.T) {
	resetFlags(rootCmd)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0644))

	configDir, dataDir, configFile = t.TempDir(), t.TempDir(), path
	t.Cleanup(func() { resetFlags(rootCmd) })

	cfg, err := getServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)

	configFile = "relative.yaml"
	_, err = getServiceConfig()
	assert.ErrorContains(t, err, "must be absolute")
}

func TestInitService_CreatesDatabase(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "settings", "show")
	assert.Contains(t, out, "not set")
	assert.Contains(t, out, "English")
	assert.FileExists(t, filepath.Join(env.dataDir, "butterfly.db"))
}

func TestInitService_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "workers: -1\n")

	_, err := env.run(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestColorEnabled(t *testing.T) {
	resetFlags(rootCmd)
	t.Setenv("NO_COLOR", "")
	assert.True(t, colorEnabled())

	noColor = true
	assert.False(t, colorEnabled())
	assert.Equal(t, "x", colorGreen("x"))

	noColor = false
	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorEnabled())
}
