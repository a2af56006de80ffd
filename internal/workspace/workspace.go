// Package workspace creates the scratch directories a run clones into and
// generates into. Directories are left in place when the run ends; removing
// them is up to the operator.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Manager hands out fresh scratch directories under a base directory.
type Manager struct {
	base string

	mu      sync.Mutex
	created []string
}

// NewManager creates a manager rooted at base, or the system temp dir when empty.
func NewManager(base string) *Manager {
	if base == "" {
		base = os.TempDir()
	}
	return &Manager{base: base}
}

// Base returns the directory scratch directories are created in.
func (m *Manager) Base() string {
	return m.base
}

// Create makes a new uniquely named directory "lithic-<kind>-<random>[-suffix]".
func (m *Manager) Create(kind, suffix string) (string, error) {
	if err := os.MkdirAll(m.base, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", m.base, err)
	}

	pattern := constants.ScratchPrefix + kind + "-*"
	if suffix = sanitize(suffix); suffix != "" {
		pattern += "-" + suffix
	}

	dir, err := os.MkdirTemp(m.base, pattern)
	if err != nil {
		return "", errors.WrapIO("create", filepath.Join(m.base, pattern), err)
	}

	m.mu.Lock()
	m.created = append(m.created, dir)
	m.mu.Unlock()

	logging.Debug().Str(logging.FieldPath, dir).Msg("Created scratch directory")
	return dir, nil
}

// Created lists every directory handed out so far, in creation order.
func (m *Manager) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == os.PathSeparator || r == '/' || r == '*' {
			return '_'
		}
		return r
	}, s)
}
