package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// Config holds the configuration for all pipeline services.
type Config struct {
	HTTP struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"http"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Collections struct {
		Requests  string `mapstructure:"requests"`
		Reports   string `mapstructure:"reports"`
		Plans     string `mapstructure:"plans"`
		Inventory string `mapstructure:"inventory"`
	} `mapstructure:"collections"`
	Bus struct {
		AnalysisTopic    string            `mapstructure:"analysis_topic"`
		PlanningTopic    string            `mapstructure:"planning_topic"`
		Endpoints        map[string]string `mapstructure:"endpoints"`
		DispatchInterval time.Duration     `mapstructure:"dispatch_interval"`
		RetryBase        time.Duration     `mapstructure:"retry_base"`
		RetryCap         time.Duration     `mapstructure:"retry_cap"`
	} `mapstructure:"bus"`
	Geo struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"geo"`
	GenAI struct {
		APIKey   string        `mapstructure:"api_key"`
		Project  string        `mapstructure:"project"`
		Location string        `mapstructure:"location"`
		Model    string        `mapstructure:"model"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"genai"`
	Retry struct {
		MaxAttempts     int           `mapstructure:"max_attempts"`
		InitialInterval time.Duration `mapstructure:"initial_interval"`
		Multiplier      float64       `mapstructure:"multiplier"`
	} `mapstructure:"retry"`
	Dashboard struct {
		IntakeURL    string `mapstructure:"intake_url"`
		PollInterval int    `mapstructure:"poll_interval"`
	} `mapstructure:"dashboard"`
}

// LoadConfig loads the configuration from an optional file and the
// environment. Environment variables use the RELIEFMESH_ prefix with
// underscores, e.g. RELIEFMESH_GENAI_API_KEY.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RELIEFMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		// Missing file is fine, the defaults cover everything except the
		// dashboard intake URL.
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Dashboard.IntakeURL = strings.TrimRight(strings.TrimSpace(cfg.Dashboard.IntakeURL), "/")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "reliefmesh")
	v.SetDefault("db.password", "reliefmesh")
	v.SetDefault("db.name", "reliefmesh")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("collections.requests", models.CollectionRescueRequests)
	v.SetDefault("collections.reports", models.CollectionDamageReports)
	v.SetDefault("collections.plans", models.CollectionLogisticsPlans)
	v.SetDefault("collections.inventory", models.CollectionInventory)

	v.SetDefault("bus.analysis_topic", "topic-damage-analysis-trigger")
	v.SetDefault("bus.planning_topic", "topic-logistics-agent-trigger")
	v.SetDefault("bus.dispatch_interval", 2*time.Second)
	v.SetDefault("bus.retry_base", 5*time.Second)
	v.SetDefault("bus.retry_cap", 5*time.Minute)

	v.SetDefault("geo.url", "http://localhost:9090")
	v.SetDefault("geo.timeout", 60*time.Second)

	// Keys without a meaningful default still need to be registered, or
	// AutomaticEnv will not surface them through Unmarshal.
	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.project", "")
	v.SetDefault("genai.location", "europe-west1")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.timeout", 60*time.Second)

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_interval", 2*time.Second)
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("dashboard.intake_url", "")
	v.SetDefault("dashboard.poll_interval", 5)
}
