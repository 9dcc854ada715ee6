// Package security keeps exported figure paths inside the directories the
// operator chose.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxElementLen bounds one sanitized path element.
const maxElementLen = 128

// canonical resolves symlinks in path, or in its nearest existing parent
// when path does not exist yet.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	for dir := abs; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
	}
}

// WithinDirectory reports an error when path, after resolving symlinks,
// falls outside dir. dir must exist.
func WithinDirectory(path, dir string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}
	d, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}
	rel, err := filepath.Rel(d, p)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// WithinAnyDirectory accepts path when it lies inside one of dirs.
func WithinAnyDirectory(path string, dirs []string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range dirs {
		if WithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path %s must be within one of %v", path, dirs)
}

// ValidateOutputDir accepts figure output directories under the working
// directory or the system temp directory.
func ValidateOutputDir(dir string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAnyDirectory(dir, []string{cwd, os.TempDir()})
}

// PathElement turns an object or class name into a single file name
// element. Characters other than ASCII letters, digits, '.', '_', '-' and
// '+' become '_', runs of '_' collapse and leading or trailing '.' and '_'
// are trimmed. Names that reduce to nothing become "unknown".
func PathElement(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		if b.Len() >= maxElementLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '+':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
