package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mrverify/internal/keyfilter"
	"github.com/roach88/mrverify/internal/mapred"
)

// Scenario is one catalog entry: a labelled job and the verifier that
// judges its results.
type Scenario struct {
	Label    string
	Job      mapred.Job
	Verifier Verifier

	// VerifierName is the name Verifier was resolved from.
	VerifierName string
}

// Catalog is a loaded test definition.
type Catalog struct {
	Scenarios []Scenario

	// Filter is the predicate for the filter sub-case, or nil for the
	// default.
	Filter keyfilter.Predicate
}

// definition is the on-disk shape shared by every format.
type definition struct {
	Scenarios []scenarioDef `yaml:"scenarios" json:"scenarios"`
	Filter    any           `yaml:"filter,omitempty" json:"filter,omitempty"`
}

type scenarioDef struct {
	Label  string     `yaml:"label" json:"label"`
	Job    mapred.Job `yaml:"job" json:"job"`
	Verify string     `yaml:"verify" json:"verify"`
}

// LoadCatalog reads a test definition, choosing the decoder by file
// extension. Every failure is returned as a *DefinitionLoadError.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DefinitionLoadError{Path: path, Err: err}
	}
	cat, err := ParseCatalog(path, data)
	if err != nil {
		return nil, &DefinitionLoadError{Path: path, Err: err}
	}
	return cat, nil
}

// ParseCatalog decodes and validates a definition held in memory. name
// selects the format by extension.
func ParseCatalog(name string, data []byte) (*Catalog, error) {
	var def definition
	var err error
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".def", ".yaml", ".yml":
		err = decodeYAML(data, &def)
	case ".json", ".hujson":
		err = decodeHuJSON(data, &def)
	case ".cue":
		err = decodeCUE(name, data, &def)
	default:
		return nil, fmt.Errorf("unsupported definition format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return buildCatalog(&def)
}

func decodeYAML(data []byte, def *definition) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeHuJSON(data []byte, def *definition) error {
	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return decodeStrictJSON(std, def)
}

func decodeStrictJSON(data []byte, def *definition) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(def); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// decodeCUE evaluates the definition as CUE, requires it to be concrete,
// and decodes its JSON form strictly.
func decodeCUE(name string, data []byte, def *definition) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE: %w", err)
	}
	if !v.LookupPath(cue.ParsePath("scenarios")).Exists() {
		return errors.New("scenarios is required")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("CUE value is not concrete: %w", err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to export CUE: %w", err)
	}
	return decodeStrictJSON(raw, def)
}

// buildCatalog validates a decoded definition and resolves verifiers and
// the filter.
func buildCatalog(def *definition) (*Catalog, error) {
	if len(def.Scenarios) == 0 {
		return nil, errors.New("scenarios list is required and must be non-empty")
	}

	cat := &Catalog{Scenarios: make([]Scenario, 0, len(def.Scenarios))}
	seen := make(map[string]bool, len(def.Scenarios))
	for i, sd := range def.Scenarios {
		if sd.Label == "" {
			return nil, fmt.Errorf("scenarios[%d]: label is required", i)
		}
		if seen[sd.Label] {
			return nil, fmt.Errorf("scenarios[%d]: duplicate label %q", i, sd.Label)
		}
		seen[sd.Label] = true

		if err := sd.Job.Validate(); err != nil {
			return nil, fmt.Errorf("scenarios[%d] (%s): %w", i, sd.Label, err)
		}
		if sd.Verify == "" {
			return nil, fmt.Errorf("scenarios[%d] (%s): verify is required", i, sd.Label)
		}
		v, ok := LookupVerifier(sd.Verify)
		if !ok {
			return nil, fmt.Errorf("scenarios[%d] (%s): unknown verifier %q (known: %s)",
				i, sd.Label, sd.Verify, strings.Join(VerifierNames(), ", "))
		}
		cat.Scenarios = append(cat.Scenarios, Scenario{
			Label:        sd.Label,
			Job:          sd.Job,
			Verifier:     v,
			VerifierName: sd.Verify,
		})
	}

	if def.Filter != nil {
		pred, err := keyfilter.Parse(def.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		cat.Filter = pred
	}
	return cat, nil
}
