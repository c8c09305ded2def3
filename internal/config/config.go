package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageCloudinary = "cloudinary"
	StorageGCS        = "gcs"

	AnalysisKafka  = "kafka"
	AnalysisInline = "inline"
)

type Config struct {
	App struct {
		Port           string   `mapstructure:"port"`
		Env            string   `mapstructure:"env"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		GroupID string   `mapstructure:"group_id"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	Storage struct {
		Provider      string `mapstructure:"provider"`
		Bucket        string `mapstructure:"bucket"`
		PublicBaseURL string `mapstructure:"public_base_url"`
	} `mapstructure:"storage"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Analysis struct {
		Mode          string        `mapstructure:"mode"`
		Delay         time.Duration `mapstructure:"delay"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
		PendingAge    time.Duration `mapstructure:"pending_age"`
	} `mapstructure:"analysis"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
}

// LoadConfig reads .env, then config.yaml from the given paths (default "."), then the environment.
func LoadConfig(paths ...string) (cfg Config, err error) {
	v := viper.New()

	err = godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	v.BindEnv("storage.provider", "STORAGE_PROVIDER")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	v.BindEnv("analysis.mode", "ANALYSIS_MODE")
	v.BindEnv("analysis.delay", "ANALYSIS_DELAY")
	v.BindEnv("analysis.sweep_interval", "ANALYSIS_SWEEP_INTERVAL")
	v.BindEnv("analysis.pending_age", "ANALYSIS_PENDING_AGE")
	v.BindEnv("jaeger.otlp_endpoint", "OTLP_ENDPOINT")

	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	// List values arrive from the environment as one comma separated string.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.App.AllowedOrigins = splitList(cfg.App.AllowedOrigins)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("kafka.group_id", "cv-analysis-group")
	v.SetDefault("auth.token_lifespan", 24*time.Hour)
	v.SetDefault("storage.provider", StorageCloudinary)
	v.SetDefault("storage.bucket", "cvs")
	v.SetDefault("analysis.mode", AnalysisKafka)
	v.SetDefault("analysis.delay", 1500*time.Millisecond)
	v.SetDefault("analysis.sweep_interval", 5*time.Minute)
	v.SetDefault("analysis.pending_age", 2*time.Minute)
}

func splitList(in []string) []string {
	if len(in) == 1 && strings.Contains(in[0], ",") {
		return strings.Split(in[0], ",")
	}
	return in
}
