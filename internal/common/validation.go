package common

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

func UUID(fieldName string, value any) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if _, err := uuid.Parse(str); err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid UUID"}
	}
	return nil
}

// SupportedExtension accepts file names whose extension maps to a source format.
func SupportedExtension(fieldName string, value any) *ValidationError {
	str, _ := value.(string)
	dot := strings.LastIndexByte(str, '.')
	if dot < 0 || constants.MapExtToFormat(str[dot:]) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "has an unsupported extension"}
	}
	return nil
}

// NonNegative accepts finite numbers that are zero or greater.
func NonNegative(fieldName string, value any) *ValidationError {
	f, ok := value.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a non-negative number"}
	}
	return nil
}

// UnitInterval accepts nil or a pointer to a number in [0,1].
func UnitInterval(fieldName string, value any) *ValidationError {
	p, ok := value.(*float64)
	if !ok || p == nil {
		return nil
	}
	if math.IsNaN(*p) || *p < 0 || *p > 1 {
		return &ValidationError{Field: fieldName, Value: *p, Message: "must be between 0 and 1"}
	}
	return nil
}

// ValidateOCRInput checks the shape of engine output before structuring.
// Content is never judged here.
func ValidateOCRInput(in entity.OCRInput) error {
	v := NewValidator()
	for i, p := range in.Pages {
		v.Field(fmt.Sprintf("pages[%d].width", i), p.Width, NonNegative)
		v.Field(fmt.Sprintf("pages[%d].height", i), p.Height, NonNegative)
		for j, l := range p.Lines {
			v.Field(fmt.Sprintf("pages[%d].lines[%d].confidence", i, j), l.Confidence, UnitInterval)
			for k, c := range l.BBox.Slice() {
				v.Field(fmt.Sprintf("pages[%d].lines[%d].bbox[%d]", i, j, k), c, finite)
			}
		}
	}
	return ValidateAndReturnError(v)
}

func finite(fieldName string, value any) *ValidationError {
	f, _ := value.(float64)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be finite"}
	}
	return nil
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
