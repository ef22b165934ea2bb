package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/slots"
)

// Defaults applied when a variable is unset.
const (
	DefaultHTTPPort     = 8080
	DefaultSQLiteDSN    = "file:facility.db"
	DefaultSessionTTL   = 24 * time.Hour
	DefaultTimezone     = "Asia/Bangkok"
	DefaultAMQPExchange = "facility.bookings"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionTTL     time.Duration
	Timezone       string
	Location       *time.Location
	ConfigFile     string
	Facility       Facility
	AMQPURL        string
	AMQPExchange   string
	CompletionCron string
	LogLevel       string
	LogFormat      string
}

// Facility is the optional YAML description of the courts and opening hours.
type Facility struct {
	Courts      []string `yaml:"courts"`
	OpensAt     string   `yaml:"opens_at"`
	ClosesAt    string   `yaml:"closes_at"`
	SlotMinutes int      `yaml:"slot_minutes"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Invalid entries are collected and reported together so an operator can fix
// every problem in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     DefaultHTTPPort,
		SQLiteDSN:    DefaultSQLiteDSN,
		SessionTTL:   DefaultSessionTTL,
		Timezone:     DefaultTimezone,
		AMQPExchange: DefaultAMQPExchange,
		LogLevel:     "info",
		LogFormat:    logging.FormatJSON,
	}

	invalid := make([]string, 0, 2)

	if portValue := env("FACILITY_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "FACILITY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("FACILITY_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := env("FACILITY_SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FACILITY_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if zone := env("FACILITY_TIMEZONE"); zone != "" {
		cfg.Timezone = zone
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "FACILITY_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if url := env("FACILITY_AMQP_URL"); url != "" {
		cfg.AMQPURL = url
	}
	if exchange := env("FACILITY_AMQP_EXCHANGE"); exchange != "" {
		cfg.AMQPExchange = exchange
	}
	cfg.CompletionCron = env("FACILITY_COMPLETION_CRON")

	if level := env("FACILITY_LOG_LEVEL"); level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			invalid = append(invalid, "FACILITY_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}
	if format := strings.ToLower(env("FACILITY_LOG_FORMAT")); format != "" {
		if format != logging.FormatJSON && format != logging.FormatText {
			invalid = append(invalid, "FACILITY_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if path := env("FACILITY_CONFIG_FILE"); path != "" {
		cfg.ConfigFile = path
		facility, problems := readFacility(path)
		if len(problems) > 0 {
			invalid = append(invalid, problems...)
		} else {
			cfg.Facility = facility
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func readFacility(path string) (Facility, []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Facility{}, []string{"FACILITY_CONFIG_FILE"}
	}
	var facility Facility
	if err := yaml.Unmarshal(data, &facility); err != nil {
		return Facility{}, []string{"FACILITY_CONFIG_FILE"}
	}
	return facility, facility.validate()
}

func (f Facility) validate() []string {
	var invalid []string
	for _, name := range f.Courts {
		if strings.TrimSpace(name) == "" {
			invalid = append(invalid, "courts")
			break
		}
	}
	if f.OpensAt != "" {
		if _, err := slots.ParseTimeOfDay(f.OpensAt); err != nil {
			invalid = append(invalid, "opens_at")
		}
	}
	if f.ClosesAt != "" {
		if _, err := slots.ParseTimeOfDay(f.ClosesAt); err != nil {
			invalid = append(invalid, "closes_at")
		}
	}
	if f.SlotMinutes < 0 {
		invalid = append(invalid, "slot_minutes")
	}
	if len(invalid) == 0 {
		if _, err := f.Window(); err != nil {
			invalid = append(invalid, "opens_at", "closes_at", "slot_minutes")
		}
	}
	return invalid
}

// Window returns the configured opening hours, falling back to
// slots.DefaultWindow for unset fields.
func (f Facility) Window() (slots.Window, error) {
	window := slots.DefaultWindow
	if f.OpensAt != "" {
		opens, err := slots.ParseTimeOfDay(f.OpensAt)
		if err != nil {
			return slots.Window{}, err
		}
		window.Opens = opens
	}
	if f.ClosesAt != "" {
		closes, err := slots.ParseTimeOfDay(f.ClosesAt)
		if err != nil {
			return slots.Window{}, err
		}
		window.Closes = closes
	}
	if f.SlotMinutes > 0 {
		window.Step = time.Duration(f.SlotMinutes) * time.Minute
	}
	if err := window.Validate(); err != nil {
		return slots.Window{}, err
	}
	return window, nil
}

// SeedParams converts the facility description into catalog seed input.
func (f Facility) SeedParams() (application.SeedParams, error) {
	window, err := f.Window()
	if err != nil {
		return application.SeedParams{}, err
	}
	courts := make([]string, 0, len(f.Courts))
	for _, name := range f.Courts {
		courts = append(courts, strings.TrimSpace(name))
	}
	return application.SeedParams{CourtNames: courts, Window: window}, nil
}
