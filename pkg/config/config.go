// Package config loads order-report settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/order-report/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Credential store backends.
const (
	StoreRedis  = "redis"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// Environment variable names.
const (
	EnvBaseURL           = "ORDER_API_BASE_URL"
	EnvClientID          = "API_CLIENT_ID"
	EnvClientSecret      = "API_CLIENT_SECRET"
	EnvRedisURL          = "REDIS_URL"
	EnvCredentialStore   = "CREDENTIAL_STORE"
	EnvBadgerPath        = "BADGER_PATH"
	EnvOutputDir         = "REPORT_OUTPUT_DIR"
	EnvDefinitions       = "REPORT_DEFINITIONS"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogPretty         = "LOG_PRETTY"
	EnvHTTPTimeout       = "HTTP_TIMEOUT"
	EnvRequestsPerSecond = "REQUESTS_PER_SECOND"
	EnvPageSize          = "PAGE_SIZE"
	EnvMetricsTextfile   = "METRICS_TEXTFILE"
)

// Settings is the process configuration.
type Settings struct {
	OrderAPIBaseURL string `validate:"required,url"`
	APIClientID     string `validate:"required"`
	APIClientSecret string

	CredentialStore string `validate:"oneof=redis badger memory"`
	RedisURL        string `validate:"required_if=CredentialStore redis"`

	// BadgerPath is the database directory. Empty keeps the database in memory.
	BadgerPath string

	ReportOutputDir   string `validate:"required"`
	ReportDefinitions string

	LogLevel  logging.LogLevel `validate:"loglevel"`
	LogPretty bool

	HTTPTimeout       time.Duration `validate:"gte=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
	PageSize          int           `validate:"gte=1"`

	MetricsTextfile string
}

// Defaults returns the settings used when no environment variable overrides them.
func Defaults() Settings {
	return Settings{
		CredentialStore: StoreMemory,
		RedisURL:        "localhost:6379",
		ReportOutputDir: os.TempDir(),
		LogLevel:        logging.LevelInfo,
		HTTPTimeout:     30 * time.Second,
		PageSize:        100,
	}
}

// Load applies defaults, then .env files, then the process environment, and
// validates the result. Variables already set in the environment win over .env
// values. With no paths, ".env" in the working directory is read if present.
func Load(envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	s, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromEnv reads settings from the process environment without validating them.
func FromEnv() (*Settings, error) {
	s := Defaults()
	r := &reader{}

	r.str(EnvBaseURL, &s.OrderAPIBaseURL)
	r.str(EnvClientID, &s.APIClientID)
	r.str(EnvClientSecret, &s.APIClientSecret)
	r.str(EnvCredentialStore, &s.CredentialStore)
	r.str(EnvRedisURL, &s.RedisURL)
	r.str(EnvBadgerPath, &s.BadgerPath)
	r.str(EnvOutputDir, &s.ReportOutputDir)
	r.str(EnvDefinitions, &s.ReportDefinitions)
	r.str(EnvMetricsTextfile, &s.MetricsTextfile)

	var level string
	if r.str(EnvLogLevel, &level) {
		s.LogLevel = logging.LogLevel(level)
	}
	r.boolean(EnvLogPretty, &s.LogPretty)
	r.duration(EnvHTTPTimeout, &s.HTTPTimeout)
	r.float(EnvRequestsPerSecond, &s.RequestsPerSecond)
	r.integer(EnvPageSize, &s.PageSize)

	s.OrderAPIBaseURL = strings.TrimRight(s.OrderAPIBaseURL, "/")
	s.CredentialStore = strings.ToLower(s.CredentialStore)

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks required settings and value ranges.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Lookup returns a setting by its lowercase key, as used by the report
// components: order_api_base_url, api_client_id, api_client_secret.
func (s *Settings) Lookup(key string) (string, bool) {
	switch key {
	case "order_api_base_url":
		return s.OrderAPIBaseURL, true
	case "api_client_id":
		return s.APIClientID, true
	case "api_client_secret":
		return s.APIClientSecret, true
	case "redis_url":
		return s.RedisURL, true
	case "report_output_dir", "tmp_dir":
		return s.ReportOutputDir, true
	}
	return "", false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logging.ValidLevel(logging.LogLevel(fl.Field().String()))
	})
	return v
}

// reader collects parse errors so every malformed variable is reported at once.
type reader struct {
	errs []error
}

func (r *reader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) str(key string, dst *string) bool {
	v, ok := r.lookup(key)
	if ok {
		*dst = v
	}
	return ok
}

func (r *reader) boolean(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *reader) float(key string, dst *float64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

// duration accepts Go duration strings ("45s") or a bare number of seconds.
func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
