package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScanSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.csv")

	run := func(args ...string) string {
		t.Helper()
		cmd := newScanSaveCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("scan save %q: %v", args, err)
		}
		return out.String()
	}

	if out := run(path, "10,10", "20.12345,10"); !strings.Contains(out, "Saved 2 point(s)") {
		t.Errorf("output = %q", out)
	}
	run(path, "0,5")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "10,10\n20.123,10\n0,5\n"; string(b) != want {
		t.Errorf("file = %q, want %q", b, want)
	}

	run("--replace", path, "1,1")
	if b, _ := os.ReadFile(path); string(b) != "1,1\n" {
		t.Errorf("file after --replace = %q", b)
	}

	cmd := newScanSaveCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "1;1"})
	if err := cmd.Execute(); err == nil {
		t.Errorf("scan save with a malformed point succeeded")
	}
}
