package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

var instanceNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("instancename", func(fl validator.FieldLevel) bool {
		return instanceNameRegex.MatchString(fl.Field().String())
	})
	return v
}

// validateStruct checks the field rules declared on FileConfig.
func validateStruct(cfg *FileConfig) []string {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	errs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "FileConfig.")

	switch fe.Tag() {
	case "required":
		return field + ": required but not set"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s: at least %s entries required", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: invalid value %q (must be one of %s)", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required_without":
		return field + ": one of zone and zone_id is required"
	case "excluded_with":
		return field + ": zone and zone_id are mutually exclusive"
	case "instancename":
		return fmt.Sprintf("%s: invalid name %q (lowercase letters, digits and dashes, starting with a letter)", field, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

// validateConfig performs cross-field validation on the complete configuration.
// Returns a list of validation errors.
func validateConfig(cfg *Config) []string {
	var errs []string

	// Validate provider names are unique
	seen := make(map[string]bool)
	for _, inst := range cfg.Providers {
		if inst.Name == "" {
			continue
		}
		if seen[inst.Name] {
			errs = append(errs, fmt.Sprintf("duplicate provider instance name: %q", inst.Name))
		}
		seen[inst.Name] = true
	}

	// Zones must reference a provider and appear once per provider.
	zones := make(map[string]int)
	for i, z := range cfg.Zones {
		if z.Provider != "" && !seen[z.Provider] {
			errs = append(errs, fmt.Sprintf("zones[%d]: unknown provider %q", i, z.Provider))
		}
		if z.Zone.ID == "" && z.Zone.Name == "" {
			continue
		}
		key := z.Key()
		if first, dup := zones[key]; dup {
			errs = append(errs, fmt.Sprintf("zones[%d]: duplicate of zones[%d] (%s)", i, first, key))
			continue
		}
		zones[key] = i
	}

	return errs
}

// validateProviderType checks that the provider type is known.
func validateProviderType(typeName string, knownTypes []string) error {
	for _, known := range knownTypes {
		if typeName == known {
			return nil
		}
	}
	return fmt.Errorf("unknown provider type: %q (known types: %s)", typeName, strings.Join(knownTypes, ", "))
}

// ValidateProviderTypes checks every provider instance against the types
// registered at startup.
func (c *Config) ValidateProviderTypes(knownTypes []string) error {
	var errs []string
	for _, p := range c.Providers {
		if err := validateProviderType(p.TypeName, knownTypes); err != nil {
			errs = append(errs, fmt.Sprintf("provider %s: %v", p.Name, err))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
