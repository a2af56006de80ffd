// Package config loads the declarative lithic source list and resolves each
// source against the shared defaults.
//
// A configuration file has two top-level keys:
//
//	default:
//	  repo: acme/schemas
//	  branch: main
//	  args: --input-file-type jsonschema
//	  output_module_path: models
//	sources:
//	  - input: schemas/pets.json
//	  - input: schemas/orders.json
//	    branch: release
//
// Every default field is required. Source fields other than input override
// the default when present, even when set to the empty string.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/lithic/pkg/errors"
)

// DefaultConfig holds the fallback applied to every source.
type DefaultConfig struct {
	Repo             string
	Branch           string
	Args             string
	OutputModulePath string
}

// SourceConfig is one entry of the sources list.
type SourceConfig struct {
	Input            string           `yaml:"input"`
	Repo             Optional[string] `yaml:"repo"`
	Branch           Optional[string] `yaml:"branch"`
	Args             Optional[string] `yaml:"args"`
	OutputModulePath Optional[string] `yaml:"output_module_path"`
}

// LithicConfig is the root of a configuration file.
type LithicConfig struct {
	Sources []SourceConfig
	Default DefaultConfig

	// Path is the file the configuration was loaded from, if any.
	Path string
}

// Resolved is a source merged with the defaults. Every field is concrete.
type Resolved struct {
	Input            string
	Repo             string
	Branch           string
	Args             string
	OutputModulePath string
}

// Name returns the input's base name without its extension.
func (r Resolved) Name() string {
	base := filepath.Base(filepath.ToSlash(r.Input))
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// Output returns the cleaned output location.
func (r Resolved) Output() string {
	return filepath.Clean(r.OutputModulePath)
}

// rawDefault tracks presence so missing defaults can be reported.
type rawDefault struct {
	Repo             Optional[string] `yaml:"repo"`
	Branch           Optional[string] `yaml:"branch"`
	Args             Optional[string] `yaml:"args"`
	OutputModulePath Optional[string] `yaml:"output_module_path"`
}

type rawConfig struct {
	Sources []SourceConfig `yaml:"sources"`
	Default *rawDefault    `yaml:"default"`
}

// Load reads, decodes and validates the configuration at path.
func Load(path string) (*LithicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(path, "", errors.WrapIO("read", path, err))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.NewConfigError(path, "", err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes and validates configuration bytes. Unknown keys are rejected.
func Parse(data []byte) (*LithicConfig, error) {
	if err := checkScalars(data); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.DisallowUnknownField()); err != nil {
		return nil, &errors.ParseError{
			Format:  "yaml",
			Message: yaml.FormatError(err, false, true),
			Err:     err,
		}
	}

	if raw.Default == nil {
		return nil, errors.NewValidationError("default", nil, "is required")
	}
	def, err := raw.Default.validate()
	if err != nil {
		return nil, err
	}
	if raw.Sources == nil {
		return nil, errors.NewValidationError("sources", nil, "is required")
	}

	cfg := &LithicConfig{Sources: raw.Sources, Default: def}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringFields are the keys whose values must be YAML strings.
var stringFields = []string{"input", "repo", "branch", "args", "output_module_path"}

// checkScalars rejects non-string scalars such as `branch: 123` or
// `args: true`, which the decoder would otherwise convert silently.
// A null value is left to presence handling.
func checkScalars(data []byte) error {
	var doc struct {
		Sources []map[string]any `yaml:"sources"`
		Default map[string]any   `yaml:"default"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &errors.ParseError{Format: "yaml", Message: yaml.FormatError(err, false, true), Err: err}
	}

	check := func(prefix string, m map[string]any) error {
		for _, key := range stringFields {
			v, ok := m[key]
			if !ok || v == nil {
				continue
			}
			if _, isString := v.(string); !isString {
				return errors.NewValidationError(prefix+key, v, fmt.Sprintf("must be a string, got %T", v))
			}
		}
		return nil
	}

	if err := check("default.", doc.Default); err != nil {
		return err
	}
	for i, src := range doc.Sources {
		if err := check(fmt.Sprintf("sources[%d].", i), src); err != nil {
			return err
		}
	}
	return nil
}

func (d *rawDefault) validate() (DefaultConfig, error) {
	fields := []struct {
		name string
		opt  Optional[string]
	}{
		{"repo", d.Repo},
		{"branch", d.Branch},
		{"args", d.Args},
		{"output_module_path", d.OutputModulePath},
	}
	for _, f := range fields {
		if !f.opt.IsSet() {
			return DefaultConfig{}, errors.NewValidationError("default."+f.name, nil, "is required")
		}
	}
	return DefaultConfig{
		Repo:             d.Repo.value,
		Branch:           d.Branch.value,
		Args:             d.Args.value,
		OutputModulePath: d.OutputModulePath.value,
	}, nil
}

// Validate checks every source and its resolved output location.
func (c *LithicConfig) Validate() error {
	var errs []error
	for i, src := range c.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(src.Input) == "" {
			errs = append(errs, errors.NewValidationError(field+".input", src.Input, "is required"))
			continue
		}
		r := Merge(c.Default, src)
		if err := ValidateOutputPath(r.OutputModulePath); err != nil {
			errs = append(errs, errors.WrapValidation(field+".output_module_path", err))
		}
	}
	return errors.Join(errs...)
}

// Merge resolves src against def. A field present in src wins, even when empty.
func Merge(def DefaultConfig, src SourceConfig) Resolved {
	return Resolved{
		Input:            src.Input,
		Repo:             src.Repo.Or(def.Repo),
		Branch:           src.Branch.Or(def.Branch),
		Args:             src.Args.Or(def.Args),
		OutputModulePath: src.OutputModulePath.Or(def.OutputModulePath),
	}
}

// Resolve merges every source in order.
func (c *LithicConfig) Resolve() []Resolved {
	out := make([]Resolved, 0, len(c.Sources))
	for _, src := range c.Sources {
		out = append(out, Merge(c.Default, src))
	}
	return out
}

// ValidateOutputPath rejects output locations that would let publish remove
// anything outside the module root.
func ValidateOutputPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("output location is empty")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return errors.New("output location must be relative: " + p)
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return errors.New("output location must not be the module root")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.New("output location escapes the module root: " + p)
	}
	return nil
}
