package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "figures")
	unsafeDir := filepath.Join(tmpDir, "elsewhere")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		dir       string
		wantError bool
	}{
		{"existing directory itself", safeDir, safeDir, false},
		{"new nested path", filepath.Join(safeDir, "raw", "SNIa", "obj.png"), safeDir, false},
		{"traversal with ..", filepath.Join(safeDir, "..", "obj.png"), safeDir, true},
		{"relative traversal", "../../../etc/passwd", safeDir, true},
		{"absolute path outside", "/etc/passwd", safeDir, true},
		{"through symlink to outside", filepath.Join(symlinkPath, "raw", "obj.png"), safeDir, true},
		{"symlink itself", symlinkPath, safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithinDirectory(tt.path, tt.dir)
			if (err != nil) != tt.wantError {
				t.Errorf("WithinDirectory(%q, %q) error = %v, wantError %v", tt.path, tt.dir, err, tt.wantError)
			}
		})
	}

	if err := WithinDirectory(filepath.Join(tmpDir, "x"), filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected error for a directory that does not exist")
	}
}

func TestWithinAnyDirectory(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	if err := WithinAnyDirectory(filepath.Join(b, "out"), []string{a, b}); err != nil {
		t.Errorf("Expected path in second directory to pass, got %v", err)
	}
	if err := WithinAnyDirectory("/etc/passwd", []string{a, b}); err == nil {
		t.Error("Expected path outside both directories to fail")
	}
	if err := WithinAnyDirectory(filepath.Join(a, "out"), nil); err == nil {
		t.Error("Expected error with no allowed directories")
	}
}

func TestValidateOutputDir(t *testing.T) {
	if err := ValidateOutputDir(filepath.Join(os.TempDir(), "lc-figures")); err != nil {
		t.Errorf("Temp output dir should be accepted: %v", err)
	}
	if err := ValidateOutputDir("figures"); err != nil {
		t.Errorf("Relative output dir should be accepted: %v", err)
	}
	if err := ValidateOutputDir("/proc/lc-figures"); err == nil {
		t.Error("Output dir outside cwd and temp should be rejected")
	}
}

func TestPathElement(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ZTF20abcdef", "ZTF20abcdef"},
		{"ZTF20b/x", "ZTF20b_x"},
		{`a\b`, "a_b"},
		{"SN Ia-91bg", "SN_Ia-91bg"},
		{"TDE+H", "TDE+H"},
		{"ZTF20a.synth-1a2b3c4d", "ZTF20a.synth-1a2b3c4d"},
		{"a//__b", "a_b"},
		{"..", "unknown"},
		{"../etc", "etc"},
		{"", "unknown"},
		{"_.hidden._", "hidden"},
	}
	for _, tt := range tests {
		if got := PathElement(tt.in); got != tt.want {
			t.Errorf("PathElement(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := PathElement(strings.Repeat("a", 300))
	if len(long) != maxElementLen {
		t.Errorf("Long name length = %d, want %d", len(long), maxElementLen)
	}
}
