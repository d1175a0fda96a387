// Package toolchain resolves the Lean executable and library search
// path for a verifier session. A toolchain can be named explicitly (an
// elan-managed installation under ~/.elan/toolchains) or discovered on
// PATH.
package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/FocuswithJustin/Lectern/core/errors"
)

// Toolchain describes a resolved Lean installation.
type Toolchain struct {
	// LeanExec is the absolute path of the lean executable.
	LeanExec string
	// CorePath is the bundled core library directory.
	CorePath string
}

// elanRoot returns the elan installation root, honoring ELAN_HOME.
func elanRoot() (string, error) {
	if home := os.Getenv("ELAN_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to locate home directory")
	}
	return filepath.Join(home, ".elan"), nil
}

// Resolve locates a Lean installation. With a non-empty name the elan
// toolchain of that name is used; otherwise lean is looked up on PATH.
func Resolve(name string) (*Toolchain, error) {
	var leanExec string
	if name != "" {
		root, err := elanRoot()
		if err != nil {
			return nil, err
		}
		leanExec = filepath.Join(root, "toolchains", name, "bin", "lean")
		if _, err := os.Stat(leanExec); err != nil {
			return nil, errors.NewNotFound("toolchain", name)
		}
	} else {
		found, err := exec.LookPath("lean")
		if err != nil {
			return nil, errors.NewNotFound("lean executable", "")
		}
		leanExec, err = filepath.Abs(found)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve lean path")
		}
	}

	// The core library ships next to the executable.
	corePath := filepath.Join(filepath.Dir(leanExec), "..", "lib", "lean", "library")
	return &Toolchain{
		LeanExec: leanExec,
		CorePath: filepath.Clean(corePath),
	}, nil
}

// LeanPath composes the LEAN_PATH value for a session: the core library
// plus an optional user library path.
func (t *Toolchain) LeanPath(libPath string) string {
	if libPath == "" {
		return t.CorePath
	}
	return t.CorePath + string(os.PathListSeparator) + libPath
}
