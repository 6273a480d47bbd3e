package study

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition subdirectories under the definitions root.
const (
	ModelsDir      = "models"
	CalculatorsDir = "calculators"
)

// definitionExts are tried in order when resolving a definition by name.
// JSON files decode through the YAML parser.
var definitionExts = []string{".json", ".yaml", ".yml"}

// ErrUnsupportedURI is returned for calculator URIs other than sh://.
var ErrUnsupportedURI = errors.New("unsupported calculator uri")

// Model describes how to compile input files for a code and how to read
// its outputs back.
type Model struct {
	ID            string               `yaml:"id"`
	VarPrefix     string               `yaml:"varprefix"`
	FormulaPrefix string               `yaml:"formulaprefix"`
	Delim         string               `yaml:"delim"`
	CommentLine   string               `yaml:"commentline"`
	Output        map[string]Extractor `yaml:"output"`

	// OutputOrder preserves the declaration order of Output.
	OutputOrder []string `yaml:"-"`
}

// Extractor reads one output value from a finished case directory.
// It is either a shell command whose stdout is a number, or a file glob
// plus a regular expression whose first capture group is a number.
type Extractor struct {
	Command string `yaml:"command"`
	File    string `yaml:"file"`
	Regex   string `yaml:"regex"`
	First   bool   `yaml:"first"`
}

// UnmarshalYAML accepts a bare string as shorthand for a command extractor.
func (e *Extractor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Command = node.Value
		return nil
	}
	type plain Extractor
	return node.Decode((*plain)(e))
}

func (e Extractor) validate(name string) error {
	switch {
	case e.Command != "" && (e.File != "" || e.Regex != ""):
		return fmt.Errorf("output %s: command and file/regex are exclusive", name)
	case e.Command != "":
		return nil
	case e.File == "" || e.Regex == "":
		return fmt.Errorf("output %s: needs a command or both file and regex", name)
	}
	return nil
}

func (m *Model) openDelim() string  { return m.Delim[:1] }
func (m *Model) closeDelim() string { return m.Delim[1:] }

func (m *Model) applyDefaults(name string) {
	if m.ID == "" {
		m.ID = name
	}
	if m.VarPrefix == "" {
		m.VarPrefix = "$"
	}
	if m.FormulaPrefix == "" {
		m.FormulaPrefix = "@"
	}
	if len(m.Delim) != 2 {
		m.Delim = "{}"
	}
	if m.CommentLine == "" {
		m.CommentLine = "#"
	}
}

// UnmarshalYAML decodes a model and records output declaration order.
func (m *Model) UnmarshalYAML(node *yaml.Node) error {
	type plain Model
	if err := node.Decode((*plain)(m)); err != nil {
		return err
	}
	m.OutputOrder = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "output" {
			continue
		}
		out := node.Content[i+1]
		for j := 0; j+1 < len(out.Content); j += 2 {
			m.OutputOrder = append(m.OutputOrder, out.Content[j].Value)
		}
	}
	return nil
}

// Calculator describes how a case is executed.
type Calculator struct {
	// URI is "sh://<command>" or "sh://" with per-model commands in Models.
	URI string `yaml:"uri"`

	// Models maps a model ID to the command used for that model.
	Models map[string]string `yaml:"models"`

	// Env adds variables to the calculator environment.
	Env map[string]string `yaml:"env"`

	// Timeout bounds a single case, e.g. "30m". Empty means no limit.
	Timeout string `yaml:"timeout"`

	timeout time.Duration
}

// Command resolves the shell command for the given model.
func (c *Calculator) Command(model string) (string, error) {
	cmd, ok := strings.CutPrefix(c.URI, "sh://")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURI, c.URI)
	}
	cmd = strings.TrimSpace(cmd)
	if m, ok := c.Models[model]; ok && strings.TrimSpace(m) != "" {
		cmd = strings.TrimSpace(m)
	}
	if cmd == "" {
		return "", fmt.Errorf("calculator has no command for model %s", model)
	}
	return cmd, nil
}

// LoadModel reads <dir>/models/<name>.{json,yaml,yml}.
// A missing definition yields an error wrapping fs.ErrNotExist.
func LoadModel(dir, name string) (*Model, error) {
	var m Model
	path, err := loadDefinition(filepath.Join(dir, ModelsDir), name, &m)
	if err != nil {
		return nil, err
	}
	m.applyDefaults(name)
	for _, out := range m.OutputOrder {
		if err := m.Output[out].validate(out); err != nil {
			return nil, fmt.Errorf("model %s (%s): %w", name, path, err)
		}
	}
	return &m, nil
}

// LoadCalculator reads <dir>/calculators/<name>.{json,yaml,yml}.
func LoadCalculator(dir, name string) (*Calculator, error) {
	var c Calculator
	path, err := loadDefinition(filepath.Join(dir, CalculatorsDir), name, &c)
	if err != nil {
		return nil, err
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("calculator %s (%s): invalid timeout: %w", name, path, err)
		}
		c.timeout = d
	}
	return &c, nil
}

// loadDefinition decodes the first existing <dir>/<name><ext> into out
// and returns its path.
func loadDefinition(dir, name string, out interface{}) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid definition name %q", name)
	}

	for _, ext := range definitionExts {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if ext == ".json" {
			// Raw tabs are only legal as whitespace in JSON, but YAML rejects
			// them as indentation.
			data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		return path, nil
	}

	return "", &fs.PathError{Op: "open", Path: filepath.Join(dir, name+definitionExts[0]), Err: fs.ErrNotExist}
}

// ListDefinitions returns the names of the definitions of the given kind
// (ModelsDir or CalculatorsDir), sorted and without extensions.
func ListDefinitions(dir, kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, kind))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range definitionExts {
			if ext != known {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names, nil
}
