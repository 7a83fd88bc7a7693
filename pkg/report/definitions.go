package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrReportNotFound is returned by Definitions.Get for an unknown report id.
var ErrReportNotFound = errors.New("report definition not found")

// Definitions is a set of report configs keyed by report id.
type Definitions struct {
	order   []string
	reports map[string]*Config
}

type definitionsFile struct {
	Reports []Config `toml:"report" json:"reports"`
}

// LoadDefinitions reads report configs from a TOML file of [[report]] tables,
// or a JSON file with a top-level "reports" array.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report definitions: %w", err)
	}

	var file definitionsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode report definitions %s: %w", path, err)
	}

	return NewDefinitions(file.Reports...)
}

// NewDefinitions validates configs and indexes them by id. Ids must be unique.
func NewDefinitions(configs ...Config) (*Definitions, error) {
	defs := &Definitions{reports: make(map[string]*Config, len(configs))}

	for i := range configs {
		cfg := configs[i]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := defs.reports[cfg.ReportID]; dup {
			return nil, fmt.Errorf("duplicate report id %q", cfg.ReportID)
		}
		defs.reports[cfg.ReportID] = &cfg
		defs.order = append(defs.order, cfg.ReportID)
	}

	return defs, nil
}

// Get returns the config for id.
func (d *Definitions) Get(id string) (*Config, error) {
	cfg, ok := d.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return cfg, nil
}

// IDs returns the report ids in file order.
func (d *Definitions) IDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}
