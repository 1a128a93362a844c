package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oepma/internal/api"
	"oepma/internal/repository"
	"oepma/internal/testsupport"
)

func writeSampleSources(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.WriteSources(t, env.cfg, testsupport.Sources{
		Applicants: []testsupport.Row{
			testsupport.Applicant("A-1", "Jane Doe", "Wien", "AT"),
			testsupport.Applicant("B-2", "Max Muster", "Graz", "AT"),
		},
		Masters: []testsupport.Row{
			testsupport.Master("A-1", "Rotary engine", "12/345"),
			testsupport.Master("B-2", "Steam valve", ""),
		},
		Priorities: []testsupport.Row{
			testsupport.Priority("A-1", "DE", "1999-05-01"),
		},
	})
	testsupport.WriteAsset(t, env.cfg, "12345.pdf")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env.configPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.ImportDir)
	requireContains(t, out, "[repository]")
}

func TestStageThenMaterialize(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSampleSources(t, env)

	out, _, err := runCLI(t, env.configPath, "stage")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, env.configPath, "--json", "staging", "list")
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	var listing struct {
		Records []stagedEntry `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode staging list: %v\n%s", err, out)
	}
	if len(listing.Records) != 2 || listing.Records[0].Name != "A_1" || !listing.Records[0].Media {
		t.Fatalf("unexpected staged records: %+v", listing.Records)
	}

	if _, _, err := runCLI(t, env.configPath, "materialize"); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "--json", "processes", "list")
	if err != nil {
		t.Fatalf("processes list: %v", err)
	}
	var procs []repository.Process
	if err := json.Unmarshal([]byte(out), &procs); err != nil {
		t.Fatalf("decode processes: %v\n%s", err, out)
	}
	if len(procs) != 2 {
		t.Fatalf("expected 2 processes, got %+v", procs)
	}

	out, _, err = runCLI(t, env.configPath, "processes", "show", "A_1")
	if err != nil {
		t.Fatalf("processes show: %v", err)
	}
	requireContains(t, out, "Rotary engine")
	requireContains(t, out, "images/orig/12345.pdf")

	out, _, err = runCLI(t, env.configPath, "staging", "list", "--done")
	if err != nil {
		t.Fatalf("staging list --done: %v", err)
	}
	requireContains(t, out, "2 record(s)")
}

func TestProcessesShowUnknownTitle(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "processes", "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRunRefusesWhileDaemonHoldsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)
	_, _, err := runCLI(t, env.configPath, "run")
	if err == nil || !strings.Contains(err.Error(), "oepma trigger") {
		t.Fatalf("expected lock error pointing at trigger, got %v", err)
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "0 processes")
}

func TestStatusTriggerAndCancelAgainstDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSampleSources(t, env)
	env.startDaemon(t)

	out, _, err := runCLI(t, env.configPath, "--json", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !status.Running || status.ImportDir != env.cfg.Paths.ImportDir {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, _, err := runCLI(t, env.configPath, "trigger", "bogus"); err == nil {
		t.Fatal("expected unknown phase to be rejected")
	}
	out, _, err = runCLI(t, env.configPath, "trigger", "stage")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	requireContains(t, out, "Run started (phase stage)")

	// the run may already be over; both answers are valid
	out, _, err = runCLI(t, env.configPath, "cancel")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(out, "Cancellation requested") && !strings.Contains(out, "No run is active") {
		t.Fatalf("unexpected cancel output %q", out)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}
