// Package config provides configuration management for the arbitrage scanner.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("logformat", validateLogFormat)
	_ = v.RegisterValidation("collectortype", validateCollectorType)
	_ = v.RegisterValidation("cronspec", validateCronSpec)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateLogFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "text", "json":
		return true
	default:
		return false
	}
}

func validateCollectorType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case CollectorTypeKalshi, CollectorTypePolymarket, CollectorTypeFile:
		return true
	default:
		return false
	}
}

// validateCronSpec accepts standard five-field specs and descriptors such as
// "@every 1m".
func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	enabled := cfg.EnabledCollectors()
	if len(enabled) == 0 {
		return fmt.Errorf("at least one collector must be enabled")
	}

	names := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		key := strings.ToLower(c.Name)
		if names[key] {
			return fmt.Errorf("duplicate collector name %q", c.Name)
		}
		names[key] = true

		switch c.Type {
		case CollectorTypeFile:
			if c.Path == "" {
				return fmt.Errorf("collector %q: path is required for file collectors", c.Name)
			}
		default:
			if c.BaseURL == "" {
				return fmt.Errorf("collector %q: base_url is required", c.Name)
			}
		}

		if c.DetailTimeoutSeconds > c.ListTimeoutSeconds {
			return fmt.Errorf("collector %q: detail_timeout_seconds cannot exceed list_timeout_seconds", c.Name)
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' is required\n", field))
		case "url":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value))
		case "min", "max":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag))
		case "gt", "gte", "lt", "lte":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag))
		case "environment":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field))
		case "loglevel":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field))
		case "logformat":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: text, json\n", field))
		case "collectortype":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: kalshi, polymarket, file, got '%v'\n", field, value))
		case "cronspec":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' is not a valid cron expression: '%v'\n", field, value))
		default:
			errMsg.WriteString(fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag))
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg.String())
}
