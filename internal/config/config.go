// Package config loads the runtime configuration of the MovieFlix ETL from
// environment variables.
//
// Every setting has a default matching the docker-compose deployment, so a
// bare container start needs nothing but a reachable warehouse. The
// POSTGRES_* names are accepted as aliases of the STORE_* names.
//
// Typical use:
//
//	cfg, err := config.Load(nil)
//	if err != nil { ... }
//	for _, iss := range config.Validate(cfg) { ... }
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// Storage kinds understood by the storage registry.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverMSSQL    = "mssql"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

var defaultPorts = map[string]int{
	DriverPostgres: 5432,
	DriverMySQL:    3306,
	DriverMSSQL:    1433,
}

// Config is the fully resolved configuration of a run.
type Config struct {
	Store StoreConfig

	// DataLakeDir holds filmes.csv, users.csv and ratings.csv.
	DataLakeDir string

	Ready ReadyConfig

	// BatchSize is the number of rows per COPY/INSERT batch.
	BatchSize int

	EnsureSchema      bool
	EnforceReferences bool
	RunAnalytics      bool

	LogLevel string

	Metrics MetricsConfig
}

// StoreConfig locates the warehouse.
type StoreConfig struct {
	Driver   string
	Host     string
	Port     int // 0 selects the driver default
	User     string
	Password string
	Database string // file path for sqlite
	SSLMode  string

	// DSN, when set, overrides every connection field above.
	DSN string
}

// ReadyConfig bounds the readiness gate.
type ReadyConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// MetricsConfig selects and addresses the metrics backend.
type MetricsConfig struct {
	Backend        string
	PushgatewayURL string
	DogStatsDAddr  string
	Job            string
}

// binding ties a viper key to its environment names and default.
type binding struct {
	key  string
	envs []string
	def  any
}

var bindings = []binding{
	{"store.driver", []string{"STORE_DRIVER"}, DriverPostgres},
	{"store.host", []string{"STORE_HOST", "POSTGRES_HOST"}, "movieflix-postgres"},
	{"store.port", []string{"STORE_PORT", "POSTGRES_PORT"}, nil},
	{"store.user", []string{"STORE_USER", "POSTGRES_USER"}, "movieflix"},
	{"store.password", []string{"STORE_PASSWORD", "POSTGRES_PASSWORD"}, "movieflix"},
	{"store.db", []string{"STORE_DB", "POSTGRES_DB"}, "movieflix_dw"},
	{"store.sslmode", []string{"STORE_SSLMODE"}, "disable"},
	{"store.dsn", []string{"STORE_DSN"}, ""},
	{"data_lake_dir", []string{"DATA_LAKE_DIR"}, "/data-lake"},
	{"ready.max_attempts", []string{"READY_MAX_ATTEMPTS"}, 10},
	{"ready.delay", []string{"READY_DELAY"}, "3s"},
	{"load.batch_size", []string{"LOAD_BATCH_SIZE"}, storage.DefaultBatchSize},
	{"ensure_schema", []string{"ENSURE_SCHEMA"}, true},
	{"enforce_references", []string{"ENFORCE_REFERENCES"}, false},
	{"run_analytics", []string{"RUN_ANALYTICS"}, true},
	{"log.level", []string{"LOG_LEVEL"}, "info"},
	{"metrics.backend", []string{"METRICS_BACKEND"}, MetricsNone},
	{"metrics.pushgateway_url", []string{"PUSHGATEWAY_URL"}, "http://localhost:9091"},
	{"metrics.dogstatsd_addr", []string{"DOGSTATSD_ADDR"}, "127.0.0.1:8125"},
	{"metrics.job", []string{"METRICS_JOB"}, "movieflix_etl"},
}

// NewViper returns a viper instance with every key bound to its environment
// names and defaults.
func NewViper() *viper.Viper {
	v := viper.New()
	for _, b := range bindings {
		if b.def != nil {
			v.SetDefault(b.key, b.def)
		}
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(append([]string{b.key}, b.envs...)...)
	}
	return v
}

// Load resolves a Config from v, or from a fresh NewViper when v is nil.
// Malformed numbers, booleans and durations are errors, not silent zeros.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = NewViper()
	}

	var (
		cfg  Config
		errs []string
	)
	// Integers are always decimal: "010" is ten, not an octal eight.
	intOf := func(key string) int {
		raw := strings.TrimSpace(cast.ToString(v.Get(key)))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, key+": "+err.Error())
		}
		return n
	}
	boolOf := func(key string) bool {
		b, err := cast.ToBoolE(v.Get(key))
		if err != nil {
			errs = append(errs, key+": "+err.Error())
		}
		return b
	}

	cfg.Store = StoreConfig{
		Driver:   strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		Host:     v.GetString("store.host"),
		Port:     intOf("store.port"),
		User:     v.GetString("store.user"),
		Password: v.GetString("store.password"),
		Database: v.GetString("store.db"),
		SSLMode:  v.GetString("store.sslmode"),
		DSN:      strings.TrimSpace(v.GetString("store.dsn")),
	}
	if cfg.Store.Port == 0 {
		cfg.Store.Port = defaultPorts[cfg.Store.Driver]
	}

	cfg.DataLakeDir = v.GetString("data_lake_dir")
	cfg.Ready.MaxAttempts = intOf("ready.max_attempts")
	delay, err := parseDelay(v.Get("ready.delay"))
	if err != nil {
		errs = append(errs, "ready.delay: "+err.Error())
	}
	cfg.Ready.Delay = delay
	cfg.BatchSize = intOf("load.batch_size")

	cfg.EnsureSchema = boolOf("ensure_schema")
	cfg.EnforceReferences = boolOf("enforce_references")
	cfg.RunAnalytics = boolOf("run_analytics")

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString("log.level")))

	cfg.Metrics = MetricsConfig{
		Backend:        strings.ToLower(strings.TrimSpace(v.GetString("metrics.backend"))),
		PushgatewayURL: v.GetString("metrics.pushgateway_url"),
		DogStatsDAddr:  v.GetString("metrics.dogstatsd_addr"),
		Job:            v.GetString("metrics.job"),
	}
	if cfg.Metrics.Backend == "" {
		cfg.Metrics.Backend = MetricsNone
	}

	if len(errs) > 0 {
		return cfg, errors.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// parseDelay accepts Go durations ("3s", "500ms") and bare integers, which
// are read as seconds.
func parseDelay(raw any) (time.Duration, error) {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid delay %q", s)
	}
	return d, nil
}

// Target names the warehouse in log lines. It never includes credentials.
func (s StoreConfig) Target() string {
	switch {
	case s.Driver == DriverSQLite:
		if s.DSN != "" {
			return s.DSN
		}
		return s.Database
	case s.DSN != "":
		return s.Driver + " (dsn)"
	case s.Port > 0:
		return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	default:
		return s.Host
	}
}

// Storage maps the store settings onto a storage.Config.
func (c Config) Storage(logger log.Logger) storage.Config {
	return storage.Config{
		Kind:      c.Store.Driver,
		Host:      c.Store.Host,
		Port:      c.Store.Port,
		User:      c.Store.User,
		Password:  c.Store.Password,
		Database:  c.Store.Database,
		SSLMode:   c.Store.SSLMode,
		DSN:       c.Store.DSN,
		BatchSize: c.BatchSize,
		Logger:    logger,
	}
}
