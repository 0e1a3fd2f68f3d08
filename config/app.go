package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Env           string        `mapstructure:"go_env"` // development|production
	Port          string        `mapstructure:"port"`
	BaseURL       string        `mapstructure:"base_url"`
	InterviewPath string        `mapstructure:"interview_path"`
	NumQuestions  int           `mapstructure:"num_questions"`
	ThinkingTime  time.Duration `mapstructure:"thinking_time"`

	SessionStore    string        `mapstructure:"session_store"` // memory|mongo
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionCacheTTL time.Duration `mapstructure:"session_cache_ttl"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"`
	PostgresURI string `mapstructure:"postgres_uri"`
	RedisAddr   string `mapstructure:"redis_addr"`

	LLMProvider    string        `mapstructure:"llm_provider"` // gemini|vertex|openai
	LLMModel       string        `mapstructure:"llm_model"`
	LLMTimeout     time.Duration `mapstructure:"llm_timeout"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	OpenAIAPIKey   string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string        `mapstructure:"openai_base_url"`
	OpenAIModel    string        `mapstructure:"openai_model"`
	VertexProject  string        `mapstructure:"vertex_project"`
	VertexLocation string        `mapstructure:"vertex_location"`

	STTEnabled bool   `mapstructure:"stt_enabled"`
	STTWorkers int    `mapstructure:"stt_workers"`
	GCSBucket  string `mapstructure:"gcs_bucket"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`

	NotifyTransport string `mapstructure:"notify_transport"` // smtp|amqp|log
	SMTPHost        string `mapstructure:"smtp_host"`
	SMTPPort        int    `mapstructure:"smtp_port"`
	SMTPUser        string `mapstructure:"smtp_user"`
	SMTPPass        string `mapstructure:"smtp_pass"`
	SMTPFrom        string `mapstructure:"smtp_from"`
	SMTPSSL         bool   `mapstructure:"smtp_ssl"`
	RabbitMQURL     string `mapstructure:"rabbitmq_url"`
	RabbitMQQueue   string `mapstructure:"rabbitmq_queue"`

	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl"`
	AdminUsername     string        `mapstructure:"admin_username"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`

	UnidocLicenseKey string `mapstructure:"unidoc_license_api_key"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("go_env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("interview_path", "/interview")
	v.SetDefault("num_questions", 6)
	v.SetDefault("thinking_time", 15*time.Second)

	v.SetDefault("session_store", "memory")
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("session_cache_ttl", 5*time.Minute)
	v.SetDefault("mongo_db", "yoointerview")

	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("llm_timeout", 45*time.Second)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("vertex_location", "us-central1")
	v.SetDefault("stt_workers", 4)

	v.SetDefault("notify_transport", "smtp")
	v.SetDefault("smtp_port", 465)
	v.SetDefault("smtp_ssl", true)
	v.SetDefault("rabbitmq_queue", "interview_invitations")

	v.SetDefault("jwt_issuer", "yoointerview")
	v.SetDefault("jwt_ttl", 12*time.Hour)
	v.SetDefault("admin_username", "admin")

	v.SetDefault("log_level", "info")
}

// Load reads .env, an optional interview.yaml and the environment, in that
// order of increasing precedence.
func Load(configFile string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("interview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about
	for _, k := range []string{"mongo_uri", "postgres_uri", "redis_addr", "llm_model", "gemini_api_key",
		"openai_api_key", "openai_base_url", "vertex_project", "stt_enabled", "gcs_bucket", "smtp_host",
		"smtp_user", "smtp_pass", "smtp_from", "rabbitmq_url", "jwt_secret", "admin_password_hash",
		"unidoc_license_api_key", "log_file", "allowed_origins"} {
		_ = v.BindEnv(k)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

func (c *AppConfig) Validate() error {
	if c.NumQuestions <= 0 {
		return errors.New("num_questions must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	switch c.SessionStore {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("session_store=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown session_store %q", c.SessionStore)
	}
	return nil
}

func (c *AppConfig) Development() bool { return c.Env == "development" }

// InterviewLink builds the candidate URL for a token.
func (c *AppConfig) InterviewLink(token string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	path := "/" + strings.Trim(c.InterviewPath, "/")
	return base + path + "/" + token
}
