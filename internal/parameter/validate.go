// Package parameter validates and merges typed report parameters.
package parameter

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"finreports/internal/model"

	"github.com/shopspring/decimal"
)

const (
	DateLayout          = "2006-01-02"
	LocalDateTimeLayout = "2006-01-02T15:04:05"
	ListDelimiter       = ","
)

// Validate checks a candidate value against a parameter definition.
// An empty candidate is structurally valid; required-ness is checked by CheckRequired.
func Validate(def model.ReportParameter, candidate string) error {
	value := strings.TrimSpace(candidate)
	if value == "" {
		return nil
	}

	switch def.Type {
	case model.ParamString:
		return validateString(def, candidate)
	case model.ParamNumber, model.ParamCurrency, model.ParamPercentage:
		return validateDecimal(def, value)
	case model.ParamDate:
		return validateTime(def, value, parseDate)
	case model.ParamDateTime:
		return validateTime(def, value, parseDateTime)
	case model.ParamBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return newError(def.Name, FormatError, "%q is not a boolean", value)
		}
		return nil
	case model.ParamList:
		if !contains(SplitList(def.ListValues), value) {
			return newError(def.Name, NotAllowed, "%q is not one of [%s]", value, def.ListValues)
		}
		return nil
	case model.ParamMultiList:
		allowed := SplitList(def.ListValues)
		for _, item := range strings.Split(value, ListDelimiter) {
			item = strings.TrimSpace(item)
			if item == "" || !contains(allowed, item) {
				return newError(def.Name, NotAllowed, "%q is not one of [%s]", item, def.ListValues)
			}
		}
		return nil
	default:
		return newError(def.Name, InvalidDefinition, "unknown parameter type %q", def.Type)
	}
}

// CheckRequired fails with *MissingRequiredError naming every required parameter
// that has no value.
func CheckRequired(params []model.ReportParameter) error {
	var missing []string
	for i := range params {
		if params[i].Missing() {
			missing = append(missing, params[i].Name)
		}
	}
	if len(missing) > 0 {
		return &MissingRequiredError{Names: missing}
	}
	return nil
}

// ValidateValues validates every bound value and joins the failures.
func ValidateValues(params []model.ReportParameter) error {
	var errs []error
	for _, p := range params {
		if err := Validate(p, p.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateForGeneration is the gate a report passes before it may start generating.
func ValidateForGeneration(params []model.ReportParameter) error {
	if err := CheckRequired(params); err != nil {
		return err
	}
	return ValidateValues(params)
}

// ValidateDefinition checks that a definition is well formed and that its default
// value satisfies it.
func ValidateDefinition(def model.ReportParameter) error {
	if strings.TrimSpace(def.Name) == "" {
		return newError(def.Name, InvalidDefinition, "name is required")
	}
	if !def.Type.Valid() {
		return newError(def.Name, InvalidDefinition, "unknown parameter type %q", def.Type)
	}
	if def.ValidationRegex != "" {
		if _, err := compilePattern(def.ValidationRegex); err != nil {
			return newError(def.Name, InvalidDefinition, "invalid validation regex: %v", err)
		}
	}
	if (def.Type == model.ParamList || def.Type == model.ParamMultiList) && len(SplitList(def.ListValues)) == 0 {
		return newError(def.Name, InvalidDefinition, "list values are required for %s", def.Type)
	}
	return Validate(def, def.DefaultValue)
}

// SplitList parses a delimited list-values string, dropping blank entries.
func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ListDelimiter) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// compilePattern anchors the pattern so it must match the whole value.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

func validateString(def model.ReportParameter, value string) error {
	if def.ValidationRegex == "" {
		return nil
	}
	re, err := compilePattern(def.ValidationRegex)
	if err != nil {
		return newError(def.Name, InvalidDefinition, "invalid validation regex: %v", err)
	}
	if !re.MatchString(value) {
		msg := def.ValidationMessage
		if msg == "" {
			msg = "value does not match " + def.ValidationRegex
		}
		return &ValidationError{Parameter: def.Name, Kind: PatternMismatch, Message: msg}
	}
	return nil
}

func validateDecimal(def model.ReportParameter, value string) error {
	n, err := parseDecimal(def.Type, value)
	if err != nil {
		return newError(def.Name, FormatError, "%q is not a number", value)
	}
	if def.MinValue != "" {
		lo, err := parseDecimal(def.Type, def.MinValue)
		if err != nil {
			return newError(def.Name, InvalidDefinition, "invalid min value %q", def.MinValue)
		}
		if n.LessThan(lo) {
			return newError(def.Name, RangeViolation, "%s is below the minimum %s", value, def.MinValue)
		}
	}
	if def.MaxValue != "" {
		hi, err := parseDecimal(def.Type, def.MaxValue)
		if err != nil {
			return newError(def.Name, InvalidDefinition, "invalid max value %q", def.MaxValue)
		}
		if n.GreaterThan(hi) {
			return newError(def.Name, RangeViolation, "%s is above the maximum %s", value, def.MaxValue)
		}
	}
	return nil
}

func parseDecimal(t model.ParameterType, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if t == model.ParamPercentage {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	}
	return decimal.NewFromString(raw)
}

func validateTime(def model.ReportParameter, value string, parse func(string) (time.Time, error)) error {
	v, err := parse(value)
	if err != nil {
		return newError(def.Name, FormatError, "%q is not a valid %s", value, strings.ToLower(string(def.Type)))
	}
	if def.MinValue != "" {
		lo, err := parse(def.MinValue)
		if err != nil {
			return newError(def.Name, InvalidDefinition, "invalid min value %q", def.MinValue)
		}
		if v.Before(lo) {
			return newError(def.Name, RangeViolation, "%s is before %s", value, def.MinValue)
		}
	}
	if def.MaxValue != "" {
		hi, err := parse(def.MaxValue)
		if err != nil {
			return newError(def.Name, InvalidDefinition, "invalid max value %q", def.MaxValue)
		}
		if v.After(hi) {
			return newError(def.Name, RangeViolation, "%s is after %s", value, def.MaxValue)
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(LocalDateTimeLayout, s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
