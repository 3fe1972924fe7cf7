package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/mons/internal/clrmeta/clrmetatest"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func init() {
	color.NoColor = true
}

// testEnv isolates a test from the user's directories.
type testEnv struct {
	dataDir    string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	return &testEnv{
		dataDir:    filepath.Join(root, "data", "mons"),
		configPath: filepath.Join(root, "config", "mons", "config.yaml"),
	}
}

// resetFlags restores every package-level flag variable, since cobra keeps
// values between executions of the same command tree.
func resetFlags() {
	clearChanged(RootCmd)
	dataDir, configPath, verbose = "", "", false
	addBranch, removeForce = "", false
	installLatest, installLaunch = false, false
	launchConsole, useEval = false, false
	modsEnabled, modsDisabled, modsValid, modsInvalid = false, false, false, false
	modsDLL, modsNoDLL, modsDir, modsZip = false, false, false, false
	modsDependency, modsSearch = "", ""
	watchDaemon, watchDaemonChild, watchStop = false, false, false
	watchPIDFile, watchLogFile = "", ""
}

// clearChanged unmarks the flags of cmd and its subcommands as set, so
// mutually exclusive flags from an earlier run do not conflict.
func clearChanged(cmd *cobra.Command) {
	unset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(unset)
	cmd.PersistentFlags().VisitAll(unset)
	for _, c := range cmd.Commands() {
		clearChanged(c)
	}
}

// run executes the root command with args and stdin, returning combined
// stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(append([]string{"--data-dir", e.dataDir, "--config", e.configPath}, args...))
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetIn(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("mons %s failed: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// gameDir creates a game directory whose Celeste.exe is a managed image
// with the given string heap entries and returns the directory.
func gameDir(t *testing.T, entries ...string) string {
	t.Helper()
	dir := t.TempDir()
	clrmetatest.Write(t, dir, "Celeste.exe", clrmetatest.Image(entries...))
	return dir
}
