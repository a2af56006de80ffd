package generator_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lithic/internal/generator"
	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{
			name: "empty args get header",
			args: "",
			want: []string{"--input", "in.json", "--output", "out", "--custom-file-header", "# lithic-schemagen"},
		},
		{
			name: "quoted args",
			args: `--input-file-type jsonschema --class-name "Pet Store"`,
			want: []string{"--input-file-type", "jsonschema", "--class-name", "Pet Store", "--input", "in.json", "--output", "out", "--custom-file-header", "# lithic-schemagen"},
		},
		{
			name: "caller header wins",
			args: `--custom-file-header '# mine'`,
			want: []string{"--custom-file-header", "# mine", "--input", "in.json", "--output", "out"},
		},
		{
			name: "caller header with equals",
			args: `--custom-file-header='# mine'`,
			want: []string{"--custom-file-header=# mine", "--input", "in.json", "--output", "out"},
		},
		{
			name: "semicolon stays in its word",
			args: "--base-class a;b --use-annotated",
			want: []string{"--base-class", "a;b", "--use-annotated", "--input", "in.json", "--output", "out", "--custom-file-header", "# lithic-schemagen"},
		},
		{
			name: "redirect character stays in header",
			args: "--custom-file-header x>y",
			want: []string{"--custom-file-header", "x>y", "--input", "in.json", "--output", "out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generator.BuildArgs(tt.args, "in.json", "out", "# lithic-schemagen")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unbalanced quoting", func(t *testing.T) {
		_, err := generator.BuildArgs(`--class-name "open`, "in.json", "out", "h")
		require.Error(t, err)
	})
}

type recordingRunner struct {
	cmds []process.Command
	err  error
	// write, when set, is created under the --output directory.
	write string
}

func (r *recordingRunner) Run(_ context.Context, cmd process.Command) (process.Output, error) {
	r.cmds = append(r.cmds, cmd)
	if r.err != nil {
		return process.Output{}, r.err
	}
	if r.write != "" {
		for i, a := range cmd.Args {
			if a == "--output" {
				if err := os.WriteFile(filepath.Join(cmd.Args[i+1], r.write), []byte("x = 1\n"), 0o644); err != nil {
					return process.Output{}, err
				}
			}
		}
	}
	return process.Output{}, nil
}

func TestGenerate(t *testing.T) {
	logging.DisableLoggingForTest(t)

	resolved := config.Resolved{
		Input:            "schemas/pets.json",
		Repo:             "acme/schemas",
		Branch:           "main",
		Args:             "--use-annotated",
		OutputModulePath: "models",
	}

	t.Run("runs command with synthesized args", func(t *testing.T) {
		runner := &recordingRunner{write: "pets.py"}
		g, err := generator.New(
			generator.WithCommand("uvx datamodel-codegen"),
			generator.WithRunner(runner),
		)
		require.NoError(t, err)

		repo := t.TempDir()
		out := filepath.Join(t.TempDir(), "models")
		require.NoError(t, g.Generate(context.Background(), resolved, repo, out))

		require.Len(t, runner.cmds, 1)
		cmd := runner.cmds[0]
		assert.Equal(t, "uvx", cmd.Name)
		assert.Equal(t, "generate", cmd.Operation)
		assert.Equal(t, []string{
			"datamodel-codegen", "--use-annotated",
			"--input", filepath.Join(repo, "schemas", "pets.json"),
			"--output", out,
			"--custom-file-header", "# lithic-schemagen",
		}, cmd.Args)

		marker, err := os.ReadFile(filepath.Join(out, "__init__.py"))
		require.NoError(t, err)
		assert.Empty(t, marker)
		assert.FileExists(t, filepath.Join(out, "pets.py"))
	})

	t.Run("marker disabled", func(t *testing.T) {
		g, err := generator.New(generator.WithRunner(&recordingRunner{}), generator.WithPackageMarker(""))
		require.NoError(t, err)

		out := filepath.Join(t.TempDir(), "models")
		require.NoError(t, g.Generate(context.Background(), resolved, t.TempDir(), out))
		assert.NoFileExists(t, filepath.Join(out, "__init__.py"))
		assert.DirExists(t, out)
	})

	t.Run("runner failure", func(t *testing.T) {
		procErr := errors.NewProcessError("generate", "datamodel-codegen", "invalid schema", stderrors.New("exit status 1"))
		g, err := generator.New(generator.WithRunner(&recordingRunner{err: procErr}))
		require.NoError(t, err)

		err = g.Generate(context.Background(), resolved, t.TempDir(), t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsSourceFailure(err))

		var ge *errors.GenerationError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "pets", ge.Source)

		var pe *errors.ProcessError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "invalid schema", pe.Output)
	})

	t.Run("bad args never reach the runner", func(t *testing.T) {
		runner := &recordingRunner{}
		g, err := generator.New(generator.WithRunner(runner))
		require.NoError(t, err)

		bad := resolved
		bad.Args = `--x 'open`
		err = g.Generate(context.Background(), bad, t.TempDir(), t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsSourceFailure(err))
		assert.Empty(t, runner.cmds)
	})
}

func TestNewValidation(t *testing.T) {
	_, err := generator.New(generator.WithCommand("  "))
	assert.Error(t, err)

	_, err = generator.New(generator.WithPackageMarker("pkg/__init__.py"))
	assert.Error(t, err)

	_, err = generator.New(generator.WithRunner(nil))
	assert.Error(t, err)
}
