package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	PostgresDSN string

	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookTolerance    time.Duration
	Currency            string
	// VerifyClientConfirm gates the server-side intent status check on the
	// client confirmation path.
	VerifyClientConfirm bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	AMQPURL          string
	OrderEventsQueue string

	AllowedOrigins []string
}

// Load reads configuration from an optional config.yaml in the working
// directory and from the environment, environment winning. Every key has a
// default so the service boots in dev with nothing set.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", 8080)
	v.SetDefault("postgres_dsn", "host=localhost port=5432 user=postgres password=postgres dbname=orders sslmode=disable")
	v.SetDefault("stripe_secret_key", "")
	v.SetDefault("stripe_webhook_secret", "")
	v.SetDefault("webhook_tolerance", 5*time.Minute)
	v.SetDefault("currency", "usd")
	v.SetDefault("verify_client_confirm", true)
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("email_from", "no-reply@hlsports.example")
	v.SetDefault("amqp_url", "")
	v.SetDefault("order_events_queue", "order_events")
	v.SetDefault("allowed_origins", []string{})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return Config{
		AppEnv:              v.GetString("app_env"),
		LogLevel:            v.GetString("log_level"),
		HTTPPort:            v.GetInt("http_port"),
		PostgresDSN:         v.GetString("postgres_dsn"),
		StripeSecretKey:     v.GetString("stripe_secret_key"),
		StripeWebhookSecret: v.GetString("stripe_webhook_secret"),
		WebhookTolerance:    v.GetDuration("webhook_tolerance"),
		Currency:            v.GetString("currency"),
		VerifyClientConfirm: v.GetBool("verify_client_confirm"),
		SMTPHost:            v.GetString("smtp_host"),
		SMTPPort:            v.GetInt("smtp_port"),
		SMTPUsername:        v.GetString("smtp_username"),
		SMTPPassword:        v.GetString("smtp_password"),
		EmailFrom:           v.GetString("email_from"),
		AMQPURL:             v.GetString("amqp_url"),
		OrderEventsQueue:    v.GetString("order_events_queue"),
		AllowedOrigins:      v.GetStringSlice("allowed_origins"),
	}, nil
}
