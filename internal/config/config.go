package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "15m" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped duration, or the fallback when unset.
func (d Duration) Std(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}

// LifecycleConfig tunes the sweep timing. The window values were magic
// constants historically; they stay configurable here.
type LifecycleConfig struct {
	SweepInterval      Duration `yaml:"sweepInterval,omitempty"`
	ActiveWindowBefore Duration `yaml:"activeWindowBefore,omitempty"`
	ActiveWindowAfter  Duration `yaml:"activeWindowAfter,omitempty"`
	CompletionGrace    Duration `yaml:"completionGrace,omitempty"`
}

// RecruitmentConfig tunes the plateau policy and notification dispatch.
type RecruitmentConfig struct {
	// PlateauAskedFactor scales employees_to_ask when deciding whether
	// recruitment has plateaued. Defaults to 1.0.
	PlateauAskedFactor float64  `yaml:"plateauAskedFactor,omitempty" validate:"omitempty,gt=0"`
	NotifyTimeout      Duration `yaml:"notifyTimeout,omitempty"`
}

// RecurringEvent is a template expanded into concrete events by the
// materialize command.
type RecurringEvent struct {
	Name            string  `yaml:"name" validate:"required"`
	RRule           string  `yaml:"rrule" validate:"required"`
	Location        string  `yaml:"location" validate:"required"`
	StartTime       string  `yaml:"startTime" validate:"required"`
	EndTime         string  `yaml:"endTime,omitempty"`
	HourlyRate      float64 `yaml:"hourlyRate" validate:"gte=0"`
	EmployeesNeeded int     `yaml:"employeesNeeded" validate:"min=1"`
	EmployeesToAsk  int     `yaml:"employeesToAsk" validate:"min=1"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL        string            `yaml:"databaseURL" validate:"required"`
	GmailUserID        string            `yaml:"gmailUserID" validate:"required"`
	GmailSender        string            `yaml:"gmailSender,omitempty"`
	ServerAddr         string            `yaml:"serverAddr,omitempty"`
	Lifecycle          LifecycleConfig   `yaml:"lifecycle,omitempty"`
	Recruitment        RecruitmentConfig `yaml:"recruitment,omitempty"`
	RecurringEvents    []RecurringEvent  `yaml:"recurringEvents,omitempty" validate:"dive"`
	MaterializeHorizon Duration          `yaml:"materializeHorizon,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from staffwerk_config.yaml,
// looking in the current directory first, then in the user's home directory.
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for a specific environment, e.g.
// env="test" looks for "staffwerk_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the rrule syntax and the
// clock-time format of every recurring template.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, tmpl := range cfg.RecurringEvents {
		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in recurringEvents[%d]: %w", i, err)
		}
		if _, err := time.Parse("15:04", tmpl.StartTime); err != nil {
			return fmt.Errorf("invalid startTime in recurringEvents[%d]: %w", i, err)
		}
		if tmpl.EndTime != "" {
			if _, err := time.Parse("15:04", tmpl.EndTime); err != nil {
				return fmt.Errorf("invalid endTime in recurringEvents[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// findConfigFile searches for the config file in the current directory and
// the home directory. A non-empty env becomes a file name infix.
func findConfigFile(env string) (string, error) {
	configFileName := "staffwerk_config.yaml"
	if env != "" {
		configFileName = "staffwerk_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
