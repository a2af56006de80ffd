package lithic_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lithic"
	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
	pkgsync "github.com/agentstation/lithic/pkg/sync"
)

// fakeCloner serves repositories from in-memory file sets keyed by clone URL.
type fakeCloner struct {
	mu     stdsync.Mutex
	repos  map[string]map[string]string
	clones atomic.Int32
}

func newFakeCloner() *fakeCloner {
	return &fakeCloner{repos: map[string]map[string]string{}}
}

func (c *fakeCloner) set(repo, branch string, files map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repos["git@github.com:"+repo+".git#"+branch] = files
}

func (c *fakeCloner) Clone(_ context.Context, url, branch, dest string) error {
	c.clones.Add(1)
	c.mu.Lock()
	files, ok := c.repos[url+"#"+branch]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("repository %s@%s not found", url, branch)
	}
	for rel, content := range files {
		p := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// fakeRunner stands in for the generator and formatter. The generator writes
// <output>/<input base>.py holding the header and the input's content.
type fakeRunner struct {
	failFormat bool
	calls      atomic.Int32
}

func (r *fakeRunner) Run(_ context.Context, cmd process.Command) (process.Output, error) {
	r.calls.Add(1)
	if cmd.Operation == "format" {
		if r.failFormat {
			return process.Output{Stderr: "E501 line too long"},
				errors.NewProcessError("format", cmd.String(), "E501 line too long", fmt.Errorf("exit status 1"))
		}
		return process.Output{}, nil
	}

	flags := map[string]string{}
	for i := 0; i+1 < len(cmd.Args); i++ {
		if strings.HasPrefix(cmd.Args[i], "--") {
			flags[cmd.Args[i]] = cmd.Args[i+1]
		}
	}
	data, err := os.ReadFile(flags["--input"])
	if err != nil {
		return process.Output{}, err
	}
	name := strings.TrimSuffix(filepath.Base(flags["--input"]), filepath.Ext(flags["--input"]))
	body := flags["--custom-file-header"] + "\n" + string(data)
	return process.Output{}, os.WriteFile(filepath.Join(flags["--output"], name+".py"), []byte(body), 0o644)
}

type harness struct {
	root   string
	cloner *fakeCloner
	runner *fakeRunner
	lithic *lithic.Lithic
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{root: t.TempDir(), cloner: newFakeCloner(), runner: &fakeRunner{}}
	l, err := lithic.New(
		lithic.WithRoot(h.root),
		lithic.WithScratchDir(t.TempDir()),
		lithic.WithCloner(h.cloner),
		lithic.WithRunner(h.runner),
		lithic.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	h.lithic = l
	return h
}

func (h *harness) sync(t *testing.T, cfg string, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	t.Helper()
	c, err := config.Parse([]byte(cfg))
	require.NoError(t, err)
	return h.lithic.Sync(context.Background(), c, opts...)
}

func (h *harness) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(h.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(h.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func findings(t *testing.T, err error) []*errors.ReconciliationError {
	t.Helper()
	var rf *errors.RunFailure
	require.True(t, errors.As(err, &rf), "got %v", err)
	var out []*errors.ReconciliationError
	for _, f := range rf.Failures {
		var re *errors.ReconciliationError
		if errors.As(f, &re) {
			out = append(out, re)
		}
	}
	return out
}

const twoSources = `
default:
  repo: acme/schemas
  branch: main
  args: --input-file-type jsonschema
  output_module_path: models
sources:
  - input: schemas/pets.json
  - input: schemas/orders.json
`

func TestSyncPublishThenVerify(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json":   "pets\n",
		"schemas/orders.json": "orders\n",
	})

	result, err := h.sync(t, twoSources, pkgsync.WithPublish(true))
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 2, result.Count(pkgsync.StatePublished))
	assert.Equal(t, "# lithic-schemagen\npets\n", h.read(t, "models/pets.py"))
	assert.Equal(t, "# lithic-schemagen\norders\n", h.read(t, "models/orders.py"))
	assert.Equal(t, "", h.read(t, "models/__init__.py"))

	t.Run("one clone per repo and branch", func(t *testing.T) {
		assert.Equal(t, int32(1), h.cloner.clones.Load())
	})

	t.Run("verify is clean after publish", func(t *testing.T) {
		result, err := h.sync(t, twoSources)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Count(pkgsync.StateVerified))
		require.Len(t, result.Units, 1)
		assert.Equal(t, "verified", result.Units[0].Outcome)
	})

	t.Run("publish is idempotent", func(t *testing.T) {
		_, err := h.sync(t, twoSources, pkgsync.WithPublish(true))
		require.NoError(t, err)
		_, err = h.sync(t, twoSources)
		require.NoError(t, err)
	})
}

func TestSyncOverrideByPresence(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{"schemas/pets.json": "main\n"})
	h.cloner.set("acme/schemas", "", map[string]string{"schemas/pets.json": "default branch\n"})

	cfg := `
default:
  repo: acme/schemas
  branch: main
  args: ""
  output_module_path: models
sources:
  - input: schemas/pets.json
    branch: ""
`
	_, err := h.sync(t, cfg, pkgsync.WithPublish(true))
	require.NoError(t, err)
	assert.Equal(t, "# lithic-schemagen\ndefault branch\n", h.read(t, "models/pets.py"))
}

func TestSyncExtraFile(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json":   "pets\n",
		"schemas/orders.json": "orders\n",
	})
	_, err := h.sync(t, twoSources, pkgsync.WithPublish(true))
	require.NoError(t, err)
	h.write(t, "models/stale.py", "old\n")

	_, err = h.sync(t, twoSources)
	require.Error(t, err)
	assert.True(t, errors.IsDrift(err))
	found := findings(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, errors.KindExtra, found[0].Kind)
	assert.Equal(t, "stale.py", found[0].Path)

	_, err = h.sync(t, twoSources, pkgsync.WithPublish(true))
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(h.root, "models", "stale.py"))
}

func TestSyncDrift(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json":   "pets\n",
		"schemas/orders.json": "orders\n",
	})
	_, err := h.sync(t, twoSources, pkgsync.WithPublish(true))
	require.NoError(t, err)
	h.write(t, "models/pets.py", "# lithic-schemagen\nedited by hand\n")

	result, err := h.sync(t, twoSources)
	require.Error(t, err)
	found := findings(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, errors.KindDrift, found[0].Kind)
	assert.Equal(t, "pets.py", found[0].Path)
	assert.Contains(t, found[0].Diff, "pets")
	assert.Contains(t, found[0].Diff, "edited by hand")
	assert.Contains(t, found[0].Error(), "schema comparison failed for models/pets.py")

	assert.Equal(t, 0, result.Count(pkgsync.StateVerified))
	assert.Equal(t, 2, result.Count(pkgsync.StateNormalized))
}

func TestSyncSeparateOutputs(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json": "pets\n",
	})
	h.cloner.set("acme/users", "main", map[string]string{
		"schemas/users.json": "users\n",
	})
	h.write(t, "models/untouched/keep.py", "keep\n")

	cfg := `
default:
  repo: acme/schemas
  branch: main
  args: ""
  output_module_path: models/pets
sources:
  - input: schemas/pets.json
  - input: schemas/users.json
    repo: acme/users
    output_module_path: models/users
`
	result, err := h.sync(t, cfg, pkgsync.WithPublish(true))
	require.NoError(t, err)
	assert.Len(t, result.Units, 2)
	assert.Equal(t, "# lithic-schemagen\npets\n", h.read(t, "models/pets/pets.py"))
	assert.Equal(t, "# lithic-schemagen\nusers\n", h.read(t, "models/users/users.py"))
	assert.NoFileExists(t, filepath.Join(h.root, "models", "pets", "users.py"))
	assert.Equal(t, "keep\n", h.read(t, "models/untouched/keep.py"))
}

func TestSyncSourceIsolation(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/users", "main", map[string]string{
		"schemas/users.json": "users\n",
	})

	cfg := `
default:
  repo: acme/missing
  branch: main
  args: ""
  output_module_path: models/broken
sources:
  - input: schemas/pets.json
  - input: schemas/users.json
    repo: acme/users
    output_module_path: models/users
`
	result, err := h.sync(t, cfg, pkgsync.WithPublish(true))
	require.Error(t, err)
	assert.True(t, errors.IsSourceFailure(err))

	var rf *errors.RunFailure
	require.True(t, errors.As(err, &rf))
	require.Len(t, rf.Failures, 2)
	var ce *errors.CloneError
	assert.True(t, errors.As(rf.Failures[0], &ce))
	found := findings(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, errors.KindIncomplete, found[0].Kind)
	assert.Equal(t, "models/broken", found[0].Output)

	require.Len(t, result.Failed(), 1)
	assert.Equal(t, "pets", result.Failed()[0].Name)
	assert.Equal(t, "clone", result.Failed()[0].Stage)
	assert.Equal(t, 1, result.Count(pkgsync.StatePublished))
	assert.Equal(t, "# lithic-schemagen\nusers\n", h.read(t, "models/users/users.py"))
	assert.NoDirExists(t, filepath.Join(h.root, "models", "broken"))
}

func TestSyncSharedOutputWithFailedSource(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json": "pets\n",
	})
	h.write(t, "models/orders.py", "# lithic-schemagen\norders\n")

	cfg := `
default:
  repo: acme/schemas
  branch: main
  args: ""
  output_module_path: models
sources:
  - input: schemas/pets.json
  - input: schemas/orders.json
    repo: acme/missing
`
	result, err := h.sync(t, cfg, pkgsync.WithPublish(true))
	require.Error(t, err)
	assert.True(t, errors.IsSourceFailure(err))

	found := findings(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, errors.KindIncomplete, found[0].Kind)
	assert.Equal(t, []string{"orders"}, found[0].Sources)

	assert.Equal(t, 1, result.Count(pkgsync.StatePublished))
	assert.Equal(t, "# lithic-schemagen\npets\n", h.read(t, "models/pets.py"))
	assert.NoFileExists(t, filepath.Join(h.root, "models", "orders.py"))

	t.Run("verify reports the failed source but passes the others", func(t *testing.T) {
		result, err := h.sync(t, cfg)
		require.Error(t, err)
		found := findings(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, errors.KindIncomplete, found[0].Kind)
		assert.Equal(t, 1, result.Count(pkgsync.StateVerified))
	})
}

func TestSyncMissingInput(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json": "pets\n",
	})

	result, err := h.sync(t, twoSources)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	require.Len(t, result.Failed(), 1)
	assert.Equal(t, "orders", result.Failed()[0].Name)
	assert.Equal(t, "generate", result.Failed()[0].Stage)
}

func TestSyncFormatFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.failFormat = true
	h.cloner.set("acme/schemas", "main", map[string]string{
		"schemas/pets.json":   "pets\n",
		"schemas/orders.json": "orders\n",
	})

	result, err := h.sync(t, twoSources, pkgsync.WithPublish(true))
	require.Error(t, err)
	require.Len(t, result.Failed(), 2)

	var fe *errors.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "E501 line too long", fe.Diagnostics)
	assert.NoDirExists(t, filepath.Join(h.root, "models"))
}

func TestSyncParallel(t *testing.T) {
	h := newHarness(t)
	files := map[string]string{}
	cfg := strings.Builder{}
	cfg.WriteString("default:\n  repo: acme/schemas\n  branch: main\n  args: \"\"\n  output_module_path: models\nsources:\n")
	for i := range 8 {
		name := fmt.Sprintf("s%d", i)
		files["schemas/"+name+".json"] = name + "\n"
		cfg.WriteString("  - input: schemas/" + name + ".json\n")
	}
	h.cloner.set("acme/schemas", "main", files)

	result, err := h.sync(t, cfg.String(), pkgsync.WithPublish(true), pkgsync.WithJobs(4))
	require.NoError(t, err)
	assert.Equal(t, 8, result.Count(pkgsync.StatePublished))
	assert.Equal(t, int32(1), h.cloner.clones.Load())
	for i := range 8 {
		assert.Equal(t, fmt.Sprintf("# lithic-schemagen\ns%d\n", i), h.read(t, fmt.Sprintf("models/s%d.py", i)))
	}
}

func TestSyncCanceled(t *testing.T) {
	h := newHarness(t)
	h.cloner.set("acme/schemas", "main", map[string]string{"schemas/pets.json": "pets\n"})
	h.write(t, "models/keep.py", "keep\n")

	c, err := config.Parse([]byte(twoSources))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.lithic.Sync(ctx, c, pkgsync.WithPublish(true))
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, "keep\n", h.read(t, "models/keep.py"))
	assert.Zero(t, h.cloner.clones.Load())
}

func TestSyncInvalidOptions(t *testing.T) {
	h := newHarness(t)
	_, err := h.sync(t, twoSources, pkgsync.WithJobs(0))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = h.lithic.Sync(context.Background(), nil)
	assert.True(t, errors.IsConfigError(err))
}

func TestNewOptions(t *testing.T) {
	_, err := lithic.New(lithic.WithRoot(""))
	assert.Error(t, err)

	_, err = lithic.New(lithic.WithTimeouts(time.Second, -1, 0))
	assert.Error(t, err)

	_, err = lithic.New(lithic.WithGenerator(""))
	assert.Error(t, err)

	l, err := lithic.New(lithic.WithRoot("out"), lithic.WithScratchDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "out", l.Root())
	assert.Empty(t, l.ScratchDirs())
}
