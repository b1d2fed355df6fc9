package compute

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var ErrInstallationNotFound = errors.New("compute: sage installation not found")

// Installation describes a Sage installation on disk.
type Installation struct {
	Root       string
	Executable string
	Version    string
}

// Command is the process engine command line evaluating one cell.
func (i Installation) Command() []string {
	return []string{i.Executable, "-c", CodePlaceholder}
}

// FindInstallation inspects root, or searches PATH for sage when root is empty.
func FindInstallation(root string) (Installation, error) {
	if strings.TrimSpace(root) == "" {
		exe, err := exec.LookPath("sage")
		if err != nil {
			return Installation{}, fmt.Errorf("%w: not on PATH", ErrInstallationNotFound)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		root = filepath.Dir(exe)
	}

	exe := filepath.Join(root, "sage")
	info, err := os.Stat(exe)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return Installation{}, fmt.Errorf("%w: %s", ErrInstallationNotFound, root)
	}
	inst := Installation{Root: root, Executable: exe}
	if data, err := os.ReadFile(filepath.Join(root, "VERSION.txt")); err == nil {
		inst.Version = strings.TrimSpace(string(data))
	}
	return inst, nil
}
