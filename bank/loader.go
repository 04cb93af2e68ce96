package bank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadOptions names the files Load reads from a data directory.
type LoadOptions struct {
	// PropertyGlob matches the preprocessed predicate files.
	PropertyGlob string `json:"property_glob" yaml:"property_glob"`

	// EntitySuffix is appended to each start domain to name its entity file.
	EntitySuffix string `json:"entity_suffix" yaml:"entity_suffix"`

	// TypeListFile holds the start domains and per-type question words.
	TypeListFile string `json:"type_list_file" yaml:"type_list_file"`
}

// DefaultLoadOptions returns the file layout produced by the preprocessing step.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		PropertyGlob: "*-props-preprocessed.json",
		EntitySuffix: "-5k-preprocessed.json",
		TypeListFile: "type-list-autogenerated.json",
	}
}

func (o LoadOptions) withDefaults() LoadOptions {
	d := DefaultLoadOptions()
	if o.PropertyGlob == "" {
		o.PropertyGlob = d.PropertyGlob
	}
	if o.EntitySuffix == "" {
		o.EntitySuffix = d.EntitySuffix
	}
	if o.TypeListFile == "" {
		o.TypeListFile = d.TypeListFile
	}
	return o
}

// Load reads predicate, type-list and entity files from dir and builds a Bank.
func Load(dir string, opts LoadOptions) (*Bank, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("bank.Load: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bank.Load: %s is not a directory", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, opts.PropertyGlob))
	if err != nil {
		return nil, fmt.Errorf("bank.Load: bad property glob: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no predicate files match %s in %s", ErrInvalidBank, opts.PropertyGlob, dir)
	}
	sort.Strings(paths)

	var predicates []Predicate
	for _, p := range paths {
		var preds []Predicate
		if err := readJSON(p, &preds); err != nil {
			return nil, fmt.Errorf("bank.Load: %w", err)
		}
		predicates = append(predicates, preds...)
	}

	var types TypeList
	if err := readJSON(filepath.Join(dir, opts.TypeListFile), &types); err != nil {
		return nil, fmt.Errorf("bank.Load: %w", err)
	}

	things := make(map[string][]Entity, len(types.StartDomains))
	for _, domain := range types.StartDomains {
		var records []Entity
		if err := readJSON(filepath.Join(dir, domain+opts.EntitySuffix), &records); err != nil {
			return nil, fmt.Errorf("bank.Load: entities for %q: %w", domain, err)
		}
		things[domain] = records
	}

	return New(predicates, types, things)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
