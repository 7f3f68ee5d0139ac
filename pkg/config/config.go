package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Optimizer OptimizerConfig
	Results   ResultsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OptimizerConfig tunes the evolutionary search and the annealing phase.
type OptimizerConfig struct {
	MinPopulation   int
	MaxPopulation   int
	MinGenerations  int
	MaxGenerations  int
	MutationRate    float64
	CrossoverRate   float64
	EliteFraction   float64
	TournamentSize  int
	TargetScore     float64
	StagnationLimit int
	EvalWorkers     int
	PlacementTries  int

	AnnealingEnabled  bool
	InitialTemp       float64
	FinalTemp         float64
	CoolingRate       float64
	MovesPerTemp      int
	OptimizationLimit time.Duration
}

// ResultsConfig governs result caching and background persistence.
type ResultsConfig struct {
	CacheTTL      time.Duration
	PersistQueue  int
	PersistRetry  int
	PersistDelay  time.Duration
	ExportEnabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Optimizer = OptimizerConfig{
		MinPopulation:     v.GetInt("OPTIMIZER_MIN_POPULATION"),
		MaxPopulation:     v.GetInt("OPTIMIZER_MAX_POPULATION"),
		MinGenerations:    v.GetInt("OPTIMIZER_MIN_GENERATIONS"),
		MaxGenerations:    v.GetInt("OPTIMIZER_MAX_GENERATIONS"),
		MutationRate:      v.GetFloat64("OPTIMIZER_MUTATION_RATE"),
		CrossoverRate:     v.GetFloat64("OPTIMIZER_CROSSOVER_RATE"),
		EliteFraction:     v.GetFloat64("OPTIMIZER_ELITE_FRACTION"),
		TournamentSize:    v.GetInt("OPTIMIZER_TOURNAMENT_SIZE"),
		TargetScore:       v.GetFloat64("OPTIMIZER_TARGET_SCORE"),
		StagnationLimit:   v.GetInt("OPTIMIZER_STAGNATION_LIMIT"),
		EvalWorkers:       v.GetInt("OPTIMIZER_EVAL_WORKERS"),
		PlacementTries:    v.GetInt("OPTIMIZER_PLACEMENT_TRIES"),
		AnnealingEnabled:  v.GetBool("OPTIMIZER_ANNEALING_ENABLED"),
		InitialTemp:       v.GetFloat64("OPTIMIZER_INITIAL_TEMP"),
		FinalTemp:         v.GetFloat64("OPTIMIZER_FINAL_TEMP"),
		CoolingRate:       v.GetFloat64("OPTIMIZER_COOLING_RATE"),
		MovesPerTemp:      v.GetInt("OPTIMIZER_MOVES_PER_TEMP"),
		OptimizationLimit: parseDuration(v.GetString("OPTIMIZER_TIME_LIMIT"), 2*time.Minute),
	}

	cfg.Results = ResultsConfig{
		CacheTTL:      parseDuration(v.GetString("RESULTS_CACHE_TTL"), 10*time.Minute),
		PersistQueue:  v.GetInt("RESULTS_PERSIST_QUEUE"),
		PersistRetry:  v.GetInt("RESULTS_PERSIST_RETRY"),
		PersistDelay:  parseDuration(v.GetString("RESULTS_PERSIST_DELAY"), time.Second),
		ExportEnabled: v.GetBool("ENABLE_EXPORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetabler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OPTIMIZER_MIN_POPULATION", 50)
	v.SetDefault("OPTIMIZER_MAX_POPULATION", 120)
	v.SetDefault("OPTIMIZER_MIN_GENERATIONS", 200)
	v.SetDefault("OPTIMIZER_MAX_GENERATIONS", 500)
	v.SetDefault("OPTIMIZER_MUTATION_RATE", 0.15)
	v.SetDefault("OPTIMIZER_CROSSOVER_RATE", 0.8)
	v.SetDefault("OPTIMIZER_ELITE_FRACTION", 0.1)
	v.SetDefault("OPTIMIZER_TOURNAMENT_SIZE", 5)
	v.SetDefault("OPTIMIZER_TARGET_SCORE", 0)
	v.SetDefault("OPTIMIZER_STAGNATION_LIMIT", 60)
	v.SetDefault("OPTIMIZER_EVAL_WORKERS", 0)
	v.SetDefault("OPTIMIZER_PLACEMENT_TRIES", 50)
	v.SetDefault("OPTIMIZER_ANNEALING_ENABLED", false)
	v.SetDefault("OPTIMIZER_INITIAL_TEMP", 100.0)
	v.SetDefault("OPTIMIZER_FINAL_TEMP", 1.0)
	v.SetDefault("OPTIMIZER_COOLING_RATE", 0.9)
	v.SetDefault("OPTIMIZER_MOVES_PER_TEMP", 50)
	v.SetDefault("OPTIMIZER_TIME_LIMIT", "2m")

	v.SetDefault("RESULTS_CACHE_TTL", "10m")
	v.SetDefault("RESULTS_PERSIST_QUEUE", 16)
	v.SetDefault("RESULTS_PERSIST_RETRY", 3)
	v.SetDefault("RESULTS_PERSIST_DELAY", "1s")
	v.SetDefault("ENABLE_EXPORT", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
