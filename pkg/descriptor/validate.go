package descriptor

import (
	"fmt"
	"log/slog"

	"github.com/c-hydro/shybox/pkg/model"
)

// Validator performs semantic validation on a parsed Document.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "validator")}
}

// Validate checks semantic correctness of a descriptor. A non-nil result is
// fatal for the whole run before any timestamp is processed.
func (v *Validator) Validate(doc *Document) *model.ValidationError {
	var errs []model.FieldError

	errs = append(errs, v.validatePriority(doc)...)
	errs = append(errs, v.validateVariables(doc)...)
	errs = append(errs, v.validateTime(doc)...)
	errs = append(errs, v.validateNamelist(doc)...)

	if len(errs) == 0 {
		return nil
	}
	return model.NewValidationError("descriptor validation failed", errs...)
}

func (v *Validator) validatePriority(doc *Document) []model.FieldError {
	var errs []model.FieldError
	if len(doc.Settings.Priority) == 0 {
		return []model.FieldError{{
			Field:   "settings.priority",
			Message: "priority order is required",
		}}
	}
	for _, src := range doc.Settings.Priority {
		if _, ok := doc.Settings.Variables.Lut[src]; !ok {
			errs = append(errs, model.FieldError{
				Field:   "settings.priority",
				Message: fmt.Sprintf("source %q is not declared in lut", src),
			})
		}
	}
	return errs
}

func (v *Validator) validateVariables(doc *Document) []model.FieldError {
	var errs []model.FieldError
	vars := doc.Settings.Variables

	// Every format key must be backed by at least one lut source.
	for name := range vars.Format {
		found := false
		for _, src := range vars.Lut {
			if _, ok := src[name]; ok {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, model.FieldError{
				Field:   "settings.variables.format." + name,
				Message: fmt.Sprintf("variable %q has a declared format but no lut entry in any source", name),
			})
		}
	}

	for name, format := range vars.Format {
		switch format {
		case "string", "int", "timestamp":
		default:
			errs = append(errs, model.FieldError{
				Field:   "settings.variables.format." + name,
				Message: fmt.Sprintf("unknown format tag %q", format),
			})
		}
		if format == "timestamp" {
			if tmpl, ok := vars.Template[name]; !ok || tmpl == "" {
				errs = append(errs, model.FieldError{
					Field:   "settings.variables.template." + name,
					Message: fmt.Sprintf("timestamp variable %q requires a template pattern", name),
				})
			}
		}
	}

	return errs
}

func (v *Validator) validateTime(doc *Document) []model.FieldError {
	var errs []model.FieldError
	switch doc.Time.Direction {
	case "", "forward", "backward":
	default:
		errs = append(errs, model.FieldError{
			Field:   "time.direction",
			Message: fmt.Sprintf("unknown direction %q; expected forward or backward", doc.Time.Direction),
		})
	}
	return errs
}

func (v *Validator) validateNamelist(doc *Document) []model.FieldError {
	if doc.Namelist == nil {
		return nil
	}
	var errs []model.FieldError
	if doc.Namelist.File.Template == "" {
		errs = append(errs, model.FieldError{
			Field:   "application_namelist.file.template",
			Message: "template path is required",
		})
	}
	if doc.Namelist.File.Project == "" {
		errs = append(errs, model.FieldError{
			Field:   "application_namelist.file.project",
			Message: "project path is required",
		})
	}
	return errs
}
