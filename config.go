package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultPort        = "8080"
	defaultLogLevel    = "info"
)

type R2Config struct {
	AccountID string `env:"R2_ACCOUNT_ID" validate:"required"`
	Bucket    string `env:"R2_BUCKET" validate:"required"`
	AccessKey string `env:"R2_ACCESS_KEY" validate:"required"`
	SecretKey string `env:"R2_SECRET_KEY" validate:"required"`
}

// InfraConfig is only needed for stored, queued analyses.
type InfraConfig struct {
	DBURL       string `env:"DB_URL" validate:"required"`
	RabbitMQURL string `env:"RABBITMQ_URL" validate:"required"`
	R2          R2Config
}

type Config struct {
	GoogleAPIKey string      `env:"GOOGLE_API_KEY" validate:"required"`
	GeminiModel  string      `env:"GEMINI_MODEL" validate:"required"`
	Port         string      `env:"PORT" validate:"required,numeric"`
	LogLevel     string      `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Infra        InfraConfig `validate:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report environment variable names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("env")
	})
	return v
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads the environment. Infrastructure settings are read but
// only validated by InfraConfig.Validate.
func loadConfig() (*Config, error) {
	cfg := &Config{
		GoogleAPIKey: getenv("GOOGLE_API_KEY", ""),
		GeminiModel:  getenv("GEMINI_MODEL", defaultGeminiModel),
		Port:         getenv("PORT", defaultPort),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", defaultLogLevel)),
		Infra: InfraConfig{
			DBURL:       getenv("DB_URL", ""),
			RabbitMQURL: getenv("RABBITMQ_URL", ""),
			R2: R2Config{
				AccountID: getenv("R2_ACCOUNT_ID", ""),
				Bucket:    getenv("R2_BUCKET", ""),
				AccessKey: getenv("R2_ACCESS_KEY", ""),
				SecretKey: getenv("R2_SECRET_KEY", ""),
			},
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, configError(err)
	}
	return cfg, nil
}

// Configured reports whether any infrastructure setting is present.
func (c InfraConfig) Configured() bool {
	return c.DBURL != "" || c.RabbitMQURL != "" ||
		c.R2.AccountID != "" || c.R2.Bucket != "" || c.R2.AccessKey != "" || c.R2.SecretKey != ""
}

func (c InfraConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return configError(err)
	}
	return nil
}

func configError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "empty "+strings.Join(missing, ", ")+" in environment")
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(invalid, ", "))
	}
	return errors.New(strings.Join(parts, "; "))
}
