package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenwick-labs/memoria/internal/types"
)

// runCLI executes rootCmd with args, capturing stdout. It always passes
// --json so output is machine-parseable and jsonOutput starts from a known
// state on every call.
func runCLI(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	jsonOutput = false
	full := append([]string{"--db", dbPath, "--json"}, args...)
	rootCmd.SetArgs(full)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	execErr := rootCmd.ExecuteContext(context.Background())
	w.Close()
	out, _ := io.ReadAll(r)
	os.Stdout = origStdout

	if execErr != nil {
		t.Fatalf("execute %v: %v", args, execErr)
	}
	return string(out)
}

func TestStoreThenGetRoundTripsViaCLI(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	storeOut := runCLI(t, dbPath, "store", "remember to water the plants")
	var stored types.Entry
	if err := json.Unmarshal(bytes.TrimSpace([]byte(storeOut)), &stored); err != nil {
		t.Fatalf("parse store output %q: %v", storeOut, err)
	}
	if stored.ID == "" {
		t.Fatal("expected a generated entry ID")
	}

	getOut := runCLI(t, dbPath, "get", stored.ID)
	var got types.Entry
	if err := json.Unmarshal(bytes.TrimSpace([]byte(getOut)), &got); err != nil {
		t.Fatalf("parse get output %q: %v", getOut, err)
	}
	if got.Content != "remember to water the plants" {
		t.Fatalf("content = %q, want %q", got.Content, "remember to water the plants")
	}
}

func TestDeleteByTierViaCLI(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	runCLI(t, dbPath, "store", "a working note", "--tier", "working")
	runCLI(t, dbPath, "store", "a long term note", "--tier", "long_term")

	out := runCLI(t, dbPath, "delete", "--tier", "working")
	var result struct {
		Deleted []string `json:"deleted"`
	}
	if err := json.Unmarshal(bytes.TrimSpace([]byte(out)), &result); err != nil {
		t.Fatalf("parse delete output %q: %v", out, err)
	}
	if len(result.Deleted) != 1 {
		t.Fatalf("deleted = %v, want exactly 1 working-tier entry", result.Deleted)
	}
}

func TestStoreWithTagsAndTier(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out := runCLI(t, dbPath, "store", "quarterly planning notes", "--tier", "working", "--tags", "planning,q3")
	var stored types.Entry
	if err := json.Unmarshal(bytes.TrimSpace([]byte(out)), &stored); err != nil {
		t.Fatalf("parse store output %q: %v", out, err)
	}
	if stored.Tier != types.TierWorking {
		t.Errorf("tier = %q, want working", stored.Tier)
	}
	if len(stored.Tags) != 2 {
		t.Errorf("tags = %v, want 2 tags", stored.Tags)
	}
}
