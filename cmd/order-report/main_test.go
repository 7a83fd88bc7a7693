package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/order-report/internal/testutil"
	"github.com/Sternrassler/order-report/pkg/config"
)

const definitions = `
[[report]]
report_id = "daily_orders"
title = "Daily Orders"
report_fields = ["OrderId", "Status", "Total"]

[report.query_parameters]
order_type = "Standard"

[[report.summary_fields]]
field = "Total"
operation = "sum"
label = "Total Value"

[[report.summary_fields]]
field = "Status"
operation = "group"
label = "Orders by Status"
`

const twoOrders = `[
	{"OrderId":"O-1","Status":"Open","Total":10.5},
	{"OrderId":"O-2","Status":"Shipped","Total":20}
]`

// setupEnv points the runner at mock and a temporary output directory.
func setupEnv(t *testing.T, mock *testutil.MockOrderAPI) string {
	t.Helper()
	out := t.TempDir()

	defs := filepath.Join(t.TempDir(), "reports.toml")
	if err := os.WriteFile(defs, []byte(definitions), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvBaseURL, mock.URL())
	t.Setenv(config.EnvClientID, "runner")
	t.Setenv(config.EnvClientSecret, "secret")
	t.Setenv(config.EnvCredentialStore, config.StoreMemory)
	t.Setenv(config.EnvOutputDir, out)
	t.Setenv(config.EnvDefinitions, defs)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvMetricsTextfile, "")
	t.Setenv(config.EnvRequestsPerSecond, "")
	t.Setenv(config.EnvPageSize, "")
	t.Setenv(config.EnvHTTPTimeout, "")
	t.Setenv(config.EnvBadgerPath, "")
	t.Setenv(config.EnvLogPretty, "")
	return out
}

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, strings.TrimSpace(stdout.String()), stderr.String()
}

func TestRun_WritesReport(t *testing.T) {
	mock := testutil.NewMockOrderAPI()
	defer mock.Close()
	mock.SetPages(testutil.MockPage{Data: twoOrders, TotalCount: testutil.Total(2)})
	out := setupEnv(t, mock)

	code, stdout, stderr := runArgs(t, "-report", "daily_orders", "-from", "2026-10-01", "-to", "2026-10-07", "-verify")
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr)
	}

	want := filepath.Join(out, "daily_orders_"+time.Now().Format("20060102")+".pdf")
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("report not written: %v", err)
	}

	payloads := mock.GetPayloads()
	if len(payloads) != 1 {
		t.Fatalf("Expected 1 search request, got %d", len(payloads))
	}
	fields, _ := payloads[0]["RequestAttributeIds"].([]any)
	if len(fields) != 3 {
		t.Errorf("Expected report fields in payload, got %v", payloads[0]["RequestAttributeIds"])
	}
	filters, _ := payloads[0]["Filters"].([]any)
	if len(filters) != 2 {
		t.Errorf("Expected date and order type filters, got %d", len(filters))
	}
}

func TestRun_EmptyResultStillWritesReport(t *testing.T) {
	mock := testutil.NewMockOrderAPI()
	defer mock.Close()
	setupEnv(t, mock)

	code, stdout, stderr := runArgs(t, "-report", "daily_orders", "-title", "Nothing Today")
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr)
	}
	if _, err := os.Stat(stdout); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRun_WithoutDefinitions(t *testing.T) {
	mock := testutil.NewMockOrderAPI()
	defer mock.Close()
	mock.SetPages(testutil.MockPage{Data: twoOrders})
	out := setupEnv(t, mock)
	t.Setenv(config.EnvDefinitions, "")

	code, stdout, stderr := runArgs(t, "-from", "2026-10-01")
	if code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr)
	}
	if want := filepath.Join(out, "report_"+time.Now().Format("20060102")+".pdf"); stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, mock *testutil.MockOrderAPI)
		args  []string
	}{
		{
			name: "authentication rejected",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {
				mock.SetResponse(testutil.TokenPath, testutil.NewUnauthorizedResponse())
			},
			args: []string{"-report", "daily_orders"},
		},
		{
			name: "search fails",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {
				mock.SetResponse(testutil.SearchPath, testutil.NewServerErrorResponse())
			},
			args: []string{"-report", "daily_orders"},
		},
		{
			name:  "unknown report",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {},
			args:  []string{"-report", "weekly"},
		},
		{
			name:  "definitions without report id",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {},
			args:  nil,
		},
		{
			name: "missing settings",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {
				t.Setenv(config.EnvClientID, "")
			},
			args: []string{"-report", "daily_orders"},
		},
		{
			name:  "bad flag",
			setup: func(t *testing.T, mock *testutil.MockOrderAPI) {},
			args:  []string{"-from", "yesterday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockOrderAPI()
			defer mock.Close()
			out := setupEnv(t, mock)
			tt.setup(t, mock)

			code, stdout, _ := runArgs(t, tt.args...)
			if code != 1 {
				t.Errorf("run() = %d, want 1", code)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want empty", stdout)
			}

			entries, _ := os.ReadDir(out)
			if len(entries) != 0 {
				t.Errorf("Expected no report files, found %d", len(entries))
			}
		})
	}
}

func TestRun_BadgerStoreReusesToken(t *testing.T) {
	mock := testutil.NewMockOrderAPI()
	defer mock.Close()
	mock.SetToken("persisted", testutil.ExpiresIn(3600))
	setupEnv(t, mock)
	t.Setenv(config.EnvCredentialStore, config.StoreBadger)
	t.Setenv(config.EnvBadgerPath, filepath.Join(t.TempDir(), "badger"))

	for i := 0; i < 2; i++ {
		if code, _, stderr := runArgs(t, "-report", "daily_orders"); code != 0 {
			t.Fatalf("run %d = %d, stderr:\n%s", i, code, stderr)
		}
	}

	if got := mock.GetTokenRequests(); got != 1 {
		t.Errorf("Expected 1 token exchange across runs, got %d", got)
	}
	if got := mock.GetLastAuthorization(); got != "Bearer persisted" {
		t.Errorf("Authorization = %q, want stored token", got)
	}
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	mock := testutil.NewMockOrderAPI()
	defer mock.Close()
	mock.SetPages(testutil.MockPage{Data: twoOrders, TotalCount: testutil.Total(2)})
	setupEnv(t, mock)

	textfile := filepath.Join(t.TempDir(), "order_report.prom")
	t.Setenv(config.EnvMetricsTextfile, textfile)

	if code, _, stderr := runArgs(t, "-report", "daily_orders"); code != 0 {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	for _, name := range []string{"order_api_pages_fetched_total", "order_report_renders_total"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("Expected %s in textfile", name)
		}
	}
}

func TestRun_Help(t *testing.T) {
	code, _, stderr := runArgs(t, "-h")
	if code != 0 {
		t.Errorf("run(-h) = %d, want 0", code)
	}
	if !strings.Contains(stderr, "-report") {
		t.Errorf("Expected usage on stderr, got %q", stderr)
	}
}

func TestParseFlags(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		args     []string
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{"defaults to yesterday", nil, day(17), day(17), false},
		{"single day", []string{"-from", "2026-10-01"}, day(1), day(1), false},
		{"range", []string{"-from", "2026-10-01", "-to", "2026-10-07"}, day(1), day(7), false},
		{"to before from", []string{"-from", "2026-10-07", "-to", "2026-10-01"}, time.Time{}, time.Time{}, true},
		{"bad from", []string{"-from", "10/01/2026"}, time.Time{}, time.Time{}, true},
		{"bad to", []string{"-to", "soon"}, time.Time{}, time.Time{}, true},
		{"positional argument", []string{"daily"}, time.Time{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, &bytes.Buffer{}, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !opts.from.Equal(tt.wantFrom) || !opts.to.Equal(tt.wantTo) {
				t.Errorf("range = %s..%s, want %s..%s", opts.from, opts.to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	opts, err := parseFlags([]string{"-env", "prod.env", "-verify", "-title", "T"}, &bytes.Buffer{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.envFiles) != 1 || opts.envFiles[0] != "prod.env" {
		t.Errorf("envFiles = %v", opts.envFiles)
	}
	if !opts.verify || opts.title != "T" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		raw      string
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{"localhost:6379", "localhost:6379", 0, false},
		{"redis://cache:6380/2", "cache:6380", 2, false},
		{"redis://cache:6379/notanumber", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			opts, err := redisOptions(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("redisOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.Addr != tt.wantAddr || opts.DB != tt.wantDB {
				t.Errorf("redisOptions() = %s db %d, want %s db %d", opts.Addr, opts.DB, tt.wantAddr, tt.wantDB)
			}
		})
	}
}

func TestOpenStore_Unknown(t *testing.T) {
	_, _, err := openStore(context.Background(), &config.Settings{CredentialStore: "etcd"})
	if err == nil {
		t.Error("openStore() error = nil, want error")
	}
}
