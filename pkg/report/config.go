package report

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Operation is a summary aggregation.
type Operation string

const (
	OpSum   Operation = "sum"
	OpAvg   Operation = "avg"
	OpMean  Operation = "mean"
	OpCount Operation = "count"
	OpMin   Operation = "min"
	OpMax   Operation = "max"

	// OpGroup renders a top-values bar chart instead of a summary row.
	OpGroup Operation = "group"
)

// Known reports whether op is one of the supported operations.
func (op Operation) Known() bool {
	switch op {
	case OpSum, OpAvg, OpMean, OpCount, OpMin, OpMax, OpGroup:
		return true
	}
	return false
}

// SummaryField configures one summary row or chart.
type SummaryField struct {
	Field     string    `toml:"field" json:"field" validate:"required"`
	Operation Operation `toml:"operation" json:"operation" validate:"required"`
	Label     string    `toml:"label" json:"label" validate:"required"`
}

// QueryParameters override the search template.
type QueryParameters struct {
	ViewName  string `toml:"view_name" json:"view_name,omitempty"`
	SortField string `toml:"sort_field" json:"sort_field,omitempty"`
	OrderType string `toml:"order_type" json:"order_type,omitempty"`
}

// Config describes one report. Unknown operations are accepted here and skipped at render time.
type Config struct {
	ReportID    string `toml:"report_id" json:"report_id" validate:"required"`
	Title       string `toml:"title" json:"title,omitempty"`
	Description string `toml:"description" json:"description,omitempty"`

	// Schedule is a standard cron expression read by the external scheduler.
	Schedule string `toml:"schedule" json:"schedule,omitempty" validate:"omitempty,cron"`

	ReportFields    []string        `toml:"report_fields" json:"report_fields,omitempty"`
	QueryParameters QueryParameters `toml:"query_parameters" json:"query_parameters"`
	SummaryFields   []SummaryField  `toml:"summary_fields" json:"summary_fields,omitempty" validate:"dive"`
}

// DefaultID is used for output paths when no report id is configured.
const DefaultID = "report"

// ID returns the report id, or DefaultID for a nil or unnamed config.
func (c *Config) ID() string {
	if c == nil || c.ReportID == "" {
		return DefaultID
	}
	return c.ReportID
}

// Validate checks the config for structural errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid report config %q: %w", c.ReportID, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}
