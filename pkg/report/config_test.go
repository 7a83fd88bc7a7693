package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionsTOML = `
[[report]]
report_id = "daily_orders"
title = "Daily Orders"
description = "All orders placed yesterday."
schedule = "0 6 * * *"
report_fields = ["OrderId", "Status", "Total"]

[report.query_parameters]
view_name = "orderdetails"
sort_field = "OrderDate"
order_type = "Standard"

[[report.summary_fields]]
field = "Total"
operation = "sum"
label = "Total Value"

[[report.summary_fields]]
field = "Status"
operation = "group"
label = "Orders by Status"

[[report]]
report_id = "returns"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefinitions_TOML(t *testing.T) {
	defs, err := LoadDefinitions(writeFile(t, "reports.toml", definitionsTOML))
	require.NoError(t, err)

	assert.Equal(t, []string{"daily_orders", "returns"}, defs.IDs())

	cfg, err := defs.Get("daily_orders")
	require.NoError(t, err)
	assert.Equal(t, "Daily Orders", cfg.Title)
	assert.Equal(t, "0 6 * * *", cfg.Schedule)
	assert.Equal(t, []string{"OrderId", "Status", "Total"}, cfg.ReportFields)
	assert.Equal(t, QueryParameters{ViewName: "orderdetails", SortField: "OrderDate", OrderType: "Standard"}, cfg.QueryParameters)
	require.Len(t, cfg.SummaryFields, 2)
	assert.Equal(t, SummaryField{Field: "Status", Operation: OpGroup, Label: "Orders by Status"}, cfg.SummaryFields[1])

	minimal, err := defs.Get("returns")
	require.NoError(t, err)
	assert.Empty(t, minimal.SummaryFields)
}

func TestLoadDefinitions_JSON(t *testing.T) {
	path := writeFile(t, "reports.json", `{
		"reports": [{
			"report_id": "weekly",
			"summary_fields": [{"field": "Total", "operation": "median", "label": "Median"}]
		}]
	}`)

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)

	cfg, err := defs.Get("weekly")
	require.NoError(t, err)
	assert.Equal(t, Operation("median"), cfg.SummaryFields[0].Operation, "unknown operations load")
}

func TestLoadDefinitions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"missing report id", "a.toml", "[[report]]\ntitle = \"x\"\n"},
		{"duplicate id", "b.toml", "[[report]]\nreport_id = \"x\"\n[[report]]\nreport_id = \"x\"\n"},
		{"bad cron", "c.toml", "[[report]]\nreport_id = \"x\"\nschedule = \"every day\"\n"},
		{"summary without label", "d.toml", "[[report]]\nreport_id = \"x\"\n[[report.summary_fields]]\nfield = \"a\"\noperation = \"sum\"\n"},
		{"unknown key", "e.toml", "[[report]]\nreport_id = \"x\"\ncolour = \"blue\"\n"},
		{"malformed", "f.toml", "[[report]\n"},
		{"bad json", "g.json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDefinitions(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefinitions_MissingFile(t *testing.T) {
	_, err := LoadDefinitions(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestDefinitions_GetUnknown(t *testing.T) {
	defs, err := NewDefinitions(Config{ReportID: "a"})
	require.NoError(t, err)

	_, err = defs.Get("b")
	assert.True(t, errors.Is(err, ErrReportNotFound))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"minimal", Config{ReportID: "r"}, false},
		{"with schedule", Config{ReportID: "r", Schedule: "*/15 * * * *"}, false},
		{"descriptor schedule", Config{ReportID: "r", Schedule: "@daily"}, false},
		{"invalid schedule", Config{ReportID: "r", Schedule: "61 * * * *"}, true},
		{"missing id", Config{}, true},
		{"summary field without field", Config{ReportID: "r", SummaryFields: []SummaryField{{Operation: OpSum, Label: "x"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ID(t *testing.T) {
	var nilCfg *Config
	assert.Equal(t, "report", nilCfg.ID())
	assert.Equal(t, "report", (&Config{}).ID())
	assert.Equal(t, "x", (&Config{ReportID: "x"}).ID())
}
