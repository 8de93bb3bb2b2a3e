// ABOUTME: Tests for CLI helpers: repeated -set flags and scripted response loading.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKVFlagSet(t *testing.T) {
	f := kvFlag{}

	if err := f.Set("name=Ada"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Set("msg=a=b"); err != nil {
		t.Fatalf("Set() with = in value error = %v", err)
	}
	if f["name"] != "Ada" || f["msg"] != "a=b" {
		t.Errorf("parsed = %v", f)
	}

	if err := f.Set("no_equals"); err == nil {
		t.Error("Set() without = accepted")
	}
	if err := f.Set("=value"); err == nil {
		t.Error("Set() with empty key accepted")
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.txt")
	content := "first response\n\nsecond\\nwith newline\n  \nthird\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	responses, err := loadScript(path)
	if err != nil {
		t.Fatalf("loadScript() error = %v", err)
	}
	want := []string{"first response", "second\nwith newline", "third"}
	if len(responses) != len(want) {
		t.Fatalf("loaded %d responses, want %d: %v", len(responses), len(want), responses)
	}
	for i := range want {
		if responses[i] != want[i] {
			t.Errorf("responses[%d] = %q, want %q", i, responses[i], want[i])
		}
	}
}

func TestLoadScriptMissingFile(t *testing.T) {
	if _, err := loadScript(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("missing script file accepted")
	}
}

func TestLoadDotEnvNoClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nexport FOO_FROM_ENV_TEST=file_value\nQUOTED_ENV_TEST=\"quoted value\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOO_FROM_ENV_TEST", "preexisting")
	os.Unsetenv("QUOTED_ENV_TEST")
	defer os.Unsetenv("QUOTED_ENV_TEST")

	loadDotEnv(path)

	if got := os.Getenv("FOO_FROM_ENV_TEST"); got != "preexisting" {
		t.Errorf("existing variable clobbered: %q", got)
	}
	if got := os.Getenv("QUOTED_ENV_TEST"); got != "quoted value" {
		t.Errorf("quoted value = %q", got)
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"FOO=bar", "FOO", "bar", true},
		{"export FOO=bar", "FOO", "bar", true},
		{`FOO="with spaces"`, "FOO", "with spaces", true},
		{"FOO='single'", "FOO", "single", true},
		{"URL=https://example.com?a=1", "URL", "https://example.com?a=1", true},
		{`MIXED="unbalanced'`, "MIXED", `"unbalanced'`, true},
		{"  ", "", "", false},
		{"# comment", "", "", false},
		{"NOEQUALS", "", "", false},
	}

	for _, tt := range tests {
		key, value, ok := parseEnvLine(tt.line)
		if key != tt.key || value != tt.value || ok != tt.ok {
			t.Errorf("parseEnvLine(%q) = %q, %q, %v; want %q, %q, %v",
				tt.line, key, value, ok, tt.key, tt.value, tt.ok)
		}
	}
}
