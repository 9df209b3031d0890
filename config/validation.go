package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Accepted values of the TLS provider and transport properties.
var (
	SSLProviders   = []string{"JDK", "OPENSSL"}
	TransportModes = []string{"NIO"}
)

const propertiesPrefix = "redisson"

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// getValidator returns the shared validator with koanf tag names and the custom rules registered.
func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration only fails for empty tags or nil functions.
		_ = v.RegisterValidation("sslprovider", oneOfFold(SSLProviders))
		_ = v.RegisterValidation("transportmode", oneOfFold(TransportModes))
		structValidator = v
	})
	return structValidator
}

// Validate checks the application, Redis property and observability sections.
func Validate(cfg *Config) error {
	if err := validateStruct("app", &cfg.App); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	if err := cfg.Redisson.Validate(); err != nil {
		return fmt.Errorf("redisson config: %w", err)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	return nil
}

// Validate checks value ranges and enumerations of the properties. It does not check
// the mode or addresses for topology consistency; that belongs to topology resolution.
func (p *Properties) Validate() error {
	if err := validateStruct(propertiesPrefix, p); err != nil {
		return err
	}

	pools := []struct {
		pool, idle string
		size, min  int
	}{
		{"connectionpoolsize", "connectionminimumidlesize", p.ConnectionPoolSize, p.ConnectionMinimumIdleSize},
		{"masterconnectionpoolsize", "masterconnectionminimumidlesize", p.MasterConnectionPoolSize, p.MasterConnectionMinimumIdleSize},
		{"slaveconnectionpoolsize", "slaveconnectionminimumidlesize", p.SlaveConnectionPoolSize, p.SlaveConnectionMinimumIdleSize},
		{"subscriptionconnectionpoolsize", "subscriptionconnectionminimumidlesize", p.SubscriptionConnectionPoolSize, p.SubscriptionConnectionMinimumIdleSize},
	}
	for _, pool := range pools {
		if pool.size > 0 && pool.min > pool.size {
			return NewValidationError(propertiesPrefix+"."+pool.idle,
				fmt.Sprintf("must not exceed %s.%s (%d)", propertiesPrefix, pool.pool, pool.size))
		}
	}

	if p.MaxCleanUpDelay > 0 && p.MinCleanUpDelay > p.MaxCleanUpDelay {
		return NewValidationError(propertiesPrefix+".mincleanupdelay",
			fmt.Sprintf("must not exceed %s.maxcleanupdelay (%s)", propertiesPrefix, p.MaxCleanUpDelay))
	}

	return nil
}

// validateStruct runs tag validation and converts the first failure into a ConfigError
// naming the configuration key.
func validateStruct(prefix string, s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	field := prefix
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		field = prefix + "." + path
	}

	switch fe.Tag() {
	case "sslprovider":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fe.Value()), SSLProviders)
	case "transportmode":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fe.Value()), TransportModes)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fe.Value()), strings.Fields(fe.Param()))
	default:
		return NewValidationError(field, getErrorMessage(fe))
	}
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func oneOfFold(options []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		for _, option := range options {
			if strings.EqualFold(value, option) {
				return true
			}
		}
		return false
	}
}
