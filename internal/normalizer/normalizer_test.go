package normalizer_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lithic/internal/normalizer"
	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

type stubRunner struct {
	got process.Command
	err error
}

func (s *stubRunner) Run(_ context.Context, cmd process.Command) (process.Output, error) {
	s.got = cmd
	return process.Output{}, s.err
}

func TestNormalizeDefaultCommand(t *testing.T) {
	logging.DisableLoggingForTest(t)

	r := &stubRunner{}
	n, err := normalizer.New(normalizer.WithRunner(r))
	require.NoError(t, err)

	require.NoError(t, n.Normalize(context.Background(), "/tmp/lithic-gen-1-pets"))
	assert.Equal(t, "ruff", r.got.Name)
	assert.Equal(t, []string{"check", "--fix", "/tmp/lithic-gen-1-pets"}, r.got.Args)
	assert.Equal(t, "format", r.got.Operation)
}

func TestNormalizeFailureCarriesDiagnostics(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	logging.DisableLoggingForTest(t)

	script := filepath.Join(t.TempDir(), "fmt.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"E999 SyntaxError in $1\" >&2\nexit 1\n"), 0o755))

	n, err := normalizer.New(normalizer.WithCommand("sh "+script))
	require.NoError(t, err)

	err = n.Normalize(context.Background(), "out")
	require.Error(t, err)
	assert.True(t, errors.IsSourceFailure(err))

	var fe *errors.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "E999 SyntaxError in out\n", fe.Diagnostics)
	assert.Contains(t, err.Error(), "E999 SyntaxError in out")
}

func TestNormalizeSuccessfulFormatter(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	logging.DisableLoggingForTest(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(target, []byte("x=1\n"), 0o644))

	script := filepath.Join(t.TempDir(), "fmt.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nprintf 'x = 1\\n' > \"$1/a.py\"\n"), 0o755))

	n, err := normalizer.New(normalizer.WithCommand("sh "+script))
	require.NoError(t, err)
	require.NoError(t, n.Normalize(context.Background(), dir))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}

func TestNewRejectsEmptyCommand(t *testing.T) {
	_, err := normalizer.New(normalizer.WithCommand(""))
	assert.Error(t, err)
}
