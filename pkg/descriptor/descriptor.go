// Package descriptor models the declarative workflow document that drives a
// scheduled model run: merge priorities, idempotency flags, the variable
// lookup tables, the time specification, and the per-application namelist and
// executable blocks. Documents are JSON; parsing goes through yaml.v3, of
// which JSON is a subset, so YAML descriptors are accepted as well.
package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the root workflow descriptor. Immutable once loaded:
// load -> resolve -> discard.
type Document struct {
	Settings   Settings        `yaml:"settings"`
	Time       TimeBlock       `yaml:"time"`
	Namelist   *NamelistSpec   `yaml:"application_namelist,omitempty"`
	Executable *ExecutableSpec `yaml:"application_execution,omitempty"`

	// Configuration holds literal pass-through fields copied verbatim into
	// every emitted configuration record (e.g. "file_tmp": null).
	Configuration map[string]any `yaml:"configuration,omitempty"`
}

// Settings carries the merge priority, the idempotency flags, and the
// variable declarations.
type Settings struct {
	Priority  []string  `yaml:"priority"`
	Flags     Flags     `yaml:"flags"`
	Variables Variables `yaml:"variables"`
}

// Flags controls whether regeneration may overwrite existing artifacts.
type Flags struct {
	UpdateNamelist  bool `yaml:"update_namelist"`
	UpdateExecution bool `yaml:"update_execution"`
}

// Variables holds three parallel mappings keyed by variable name.
type Variables struct {
	// Lut maps source name ("user", "environment") to raw values. A string
	// value in the environment source names a process environment key; the
	// injected override mapping supplies its value at resolution time.
	Lut map[string]map[string]any `yaml:"lut"`

	// Format maps variable name to its semantic type tag:
	// "string", "int" or "timestamp".
	Format map[string]string `yaml:"format"`

	// Template maps variable name to a strftime pattern (timestamp
	// variables) or a generic marker for the other types.
	Template map[string]string `yaml:"template"`
}

// TimeBlock is the raw time specification of the descriptor. Start and End
// may be null or brace placeholders ("{time_end}") deferred until variable
// resolution supplies a concrete value.
type TimeBlock struct {
	Start     any    `yaml:"start"`
	End       any    `yaml:"end"`
	Period    int    `yaml:"period"`
	Frequency string `yaml:"frequency"`
	Rounding  string `yaml:"rounding"`
	Direction string `yaml:"direction"`
	Shift     int    `yaml:"shift"`
}

// commentKeys are documentation-only entries stripped anywhere in the
// document before resolution.
var commentKeys = map[string]bool{
	"__comment__": true,
	"_comment_":   true,
	"__comment":   true,
	"_comment":    true,
}

// Load reads and parses a descriptor document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a descriptor document (JSON or YAML).
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	doc.stripComments()
	return &doc, nil
}

func (d *Document) stripComments() {
	for _, src := range d.Settings.Variables.Lut {
		for k := range src {
			if commentKeys[k] {
				delete(src, k)
			}
		}
	}
	for k := range d.Settings.Variables.Format {
		if commentKeys[k] {
			delete(d.Settings.Variables.Format, k)
		}
	}
	for k := range d.Settings.Variables.Template {
		if commentKeys[k] {
			delete(d.Settings.Variables.Template, k)
		}
	}
	for k := range d.Configuration {
		if commentKeys[k] {
			delete(d.Configuration, k)
		}
	}
}
