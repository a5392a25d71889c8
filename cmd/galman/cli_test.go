package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"galman/internal/config"
	"galman/internal/faults"
	"galman/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("GALMAN_COLLECTION", "")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	out, _, err = runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Collection.Path)
	requireContains(t, out, "[viewer]")

	out, _, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestImportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	source := t.TempDir()
	testsupport.WriteContent(t, filepath.Join(source, "a.jpg"), "a")
	testsupport.WriteContent(t, filepath.Join(source, "b.jpg"), "b")
	testsupport.WriteContent(t, filepath.Join(source, "a.jpg.json"), "{}")

	out, _, err := runCLI(t, env.configPath, "import", "-s", source)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported 2 new files")
	requireContains(t, out, "1 ignored")

	airlock := filepath.Join(env.cfg.Collection.Path, env.cfg.Collection.AirlockDir)
	if names := testsupport.ListNames(t, airlock); len(names) != 2 {
		t.Fatalf("expected 2 airlock files, got %v", names)
	}
}

func TestImportCommandRequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "import"); err == nil {
		t.Fatal("expected error without -s")
	}
	_, _, err := runCLI(t, env.configPath, "import", "-s", filepath.Join(t.TempDir(), "missing"))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected source error naming the path, got %v", err)
	}
}

func TestReviewCommandEmptyAirlock(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "review")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, "Airlock is empty")
	requireContains(t, out, "Log: ")
}

func TestCollectionFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	other := t.TempDir()

	out, _, err := runCLI(t, env.configPath, "-c", other, "review")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, "Airlock is empty")
	if _, err := os.Stat(filepath.Join(other, ".airlock")); err != nil {
		t.Fatalf("expected airlock in override collection: %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	source := t.TempDir()
	testsupport.WriteContent(t, filepath.Join(source, "pending.png"), "pending bytes")
	if _, _, err := runCLI(t, env.configPath, "import", "-s", source); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Collection:")
	requireContains(t, out, "Viewer:")
	requireContains(t, out, "Session:")
	requireContains(t, out, "Airlock (pending)")
	requireContains(t, out, "Rejected (recorded)")
	requireContains(t, out, "13 B")
}

func TestStatusWhileSessionActive(t *testing.T) {
	env := setupCLITestEnv(t)
	_ = testsupport.MustOpenCollection(t, env.cfg)

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "review session in progress")
	requireContains(t, out, "Decision counts unavailable")
}

func TestInvalidLogLevelFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "--log-level", "chatty", "review"); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, "logs"); err == nil || !strings.Contains(err.Error(), "no run logs") {
		t.Fatalf("expected missing log error, got %v", err)
	}

	source := t.TempDir()
	testsupport.WriteContent(t, filepath.Join(source, "a.jpg"), "a")
	if _, _, err := runCLI(t, env.configPath, "import", "-s", source); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "logs", "-n", "50")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "==> "+env.cfg.Logging.Dir)
	requireContains(t, out, "importer")
}

func TestErrorHint(t *testing.T) {
	if hint, ok := errorHint(fmt.Errorf("open: %w", faults.ErrCollectionBusy)); !ok || !strings.Contains(hint, "other galman session") {
		t.Fatalf("errorHint(busy) = %q, %v", hint, ok)
	}
	if _, ok := errorHint(errors.New("plain")); ok {
		t.Fatal("unclassified errors should have no hint")
	}
}
