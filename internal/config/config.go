package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nordicstacks/eventpipeline/internal/pipeline"
)

// Config holds every recognized runtime option. Unknown EVENTPIPELINE_*
// environment variables are rejected at startup by Load.
type Config struct {
	Concurrency          int           `validate:"gte=1,lte=64"`
	PerURLTimeout        time.Duration `validate:"gte=1s"`
	HorizonDays          int           `validate:"gte=1,lte=365"`
	RetentionDays        int           `validate:"gte=1"`
	DetailFetchCapPerRun int           `validate:"gte=0"`
	AIModelHint          string
	AIAPIKey             string
	DBPath               string `validate:"required"`
	Schedule             ScheduleConfig
	Logging              LoggingConfig
}

// ScheduleConfig describes when the orchestrator run is triggered.
type ScheduleConfig struct {
	Frequency string `validate:"oneof=daily weekly custom"`
	Day       string
	TimeHHMM  string
	CustomISO string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// recognizedEnvVars is the allowlist Load checks unknown EVENTPIPELINE_*
// variables against. Anything with the prefix that isn't here is a
// FatalConfig-worthy startup error.
var recognizedEnvVars = map[string]bool{
	"EVENTPIPELINE_CONCURRENCY":              true,
	"EVENTPIPELINE_PER_URL_TIMEOUT_S":        true,
	"EVENTPIPELINE_HORIZON_DAYS":             true,
	"EVENTPIPELINE_RETENTION_DAYS":           true,
	"EVENTPIPELINE_DETAIL_FETCH_CAP_PER_RUN": true,
	"EVENTPIPELINE_AI_MODEL_HINT":            true,
	"EVENTPIPELINE_AI_API_KEY":               true,
	"EVENTPIPELINE_DB_PATH":                  true,
	"EVENTPIPELINE_SCHEDULE_FREQUENCY":       true,
	"EVENTPIPELINE_SCHEDULE_DAY":             true,
	"EVENTPIPELINE_SCHEDULE_TIME":            true,
	"EVENTPIPELINE_SCHEDULE_CUSTOM_ISO":      true,
	"EVENTPIPELINE_LOG_LEVEL":                true,
	"EVENTPIPELINE_LOG_FORMAT":               true,
}

// Load reads the runtime Config from the environment, applies spec-mandated
// defaults, and validates the result.
func Load() (Config, error) {
	if err := checkUnknownEnv(); err != nil {
		return Config{}, &pipeline.FatalConfig{Reason: err.Error()}
	}

	cfg := Config{
		Concurrency:          getEnvInt("EVENTPIPELINE_CONCURRENCY", 2),
		PerURLTimeout:        time.Duration(getEnvInt("EVENTPIPELINE_PER_URL_TIMEOUT_S", 1800)) * time.Second,
		HorizonDays:          getEnvInt("EVENTPIPELINE_HORIZON_DAYS", 30),
		RetentionDays:        getEnvInt("EVENTPIPELINE_RETENTION_DAYS", 90),
		DetailFetchCapPerRun: getEnvInt("EVENTPIPELINE_DETAIL_FETCH_CAP_PER_RUN", 200),
		AIModelHint:          getEnv("EVENTPIPELINE_AI_MODEL_HINT", ""),
		AIAPIKey:             getEnv("EVENTPIPELINE_AI_API_KEY", os.Getenv("OPENAI_API_KEY")),
		DBPath:               getEnv("EVENTPIPELINE_DB_PATH", "eventpipeline.db"),
		Schedule: ScheduleConfig{
			Frequency: getEnv("EVENTPIPELINE_SCHEDULE_FREQUENCY", "daily"),
			Day:       getEnv("EVENTPIPELINE_SCHEDULE_DAY", ""),
			TimeHHMM:  getEnv("EVENTPIPELINE_SCHEDULE_TIME", "06:00"),
			CustomISO: getEnv("EVENTPIPELINE_SCHEDULE_CUSTOM_ISO", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("EVENTPIPELINE_LOG_LEVEL", "info"),
			Format: getEnv("EVENTPIPELINE_LOG_FORMAT", "json"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, &pipeline.FatalConfig{Reason: fmt.Sprintf("invalid configuration: %v", err)}
	}
	if cfg.AIAPIKey == "" {
		return Config{}, &pipeline.FatalConfig{Reason: "AI API key is required (set EVENTPIPELINE_AI_API_KEY or OPENAI_API_KEY)"}
	}
	return cfg, nil
}

func checkUnknownEnv() error {
	var unknown []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "EVENTPIPELINE_") {
			continue
		}
		if !recognizedEnvVars[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unrecognized configuration options: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
