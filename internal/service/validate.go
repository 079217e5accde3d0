package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
)

// Field limits for applications.
const (
	MaxCompanyNameLength    = 100
	MaxJobTitleLength       = 100
	MaxJobDescriptionLength = 5000
	MaxLocationLength       = 100
	MaxSourceLength         = 100
	MaxNotesLength          = 2000
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package. Field names in errors are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateApplication checks every field constraint of an application and
// returns one violation per failing field, in field order. It has no side
// effects and does not consult the store; an empty result means app may be
// written.
func ValidateApplication(app *model.Application) []apperror.Violation {
	var out []apperror.Violation
	add := func(field, msg string) {
		out = append(out, apperror.Violation{Field: field, Message: msg})
	}

	if app.UserID == "" {
		add("user", "Application must belong to a user")
	}

	switch {
	case app.CompanyName == "":
		add("companyName", "Please provide a company name")
	case utf8.RuneCountInString(app.CompanyName) > MaxCompanyNameLength:
		add("companyName", fmt.Sprintf("Company name cannot be more than %d characters", MaxCompanyNameLength))
	}

	switch {
	case app.JobTitle == "":
		add("jobTitle", "Please provide a job title")
	case utf8.RuneCountInString(app.JobTitle) > MaxJobTitleLength:
		add("jobTitle", fmt.Sprintf("Job title cannot be more than %d characters", MaxJobTitleLength))
	}

	if utf8.RuneCountInString(app.JobDescription) > MaxJobDescriptionLength {
		add("jobDescription", fmt.Sprintf("Job description cannot be more than %d characters", MaxJobDescriptionLength))
	}

	if app.ApplicationDate.IsZero() {
		add("applicationDate", "Please provide an application date")
	}

	if !app.Status.Valid() {
		add("status", "Status must be: Applied, Interview, Offer, or Rejected")
	}

	if app.Salary != nil && *app.Salary < 0 {
		add("salary", "Salary cannot be negative")
	}

	if utf8.RuneCountInString(app.Location) > MaxLocationLength {
		add("location", fmt.Sprintf("Location cannot be more than %d characters", MaxLocationLength))
	}

	if app.JobType != "" && !app.JobType.Valid() {
		add("jobType", "Job type must be: Full-time, Part-time, Contract, Internship, or Remote")
	}

	if utf8.RuneCountInString(app.Source) > MaxSourceLength {
		add("source", fmt.Sprintf("Source cannot be more than %d characters", MaxSourceLength))
	}

	if utf8.RuneCountInString(app.Notes) > MaxNotesLength {
		add("notes", fmt.Sprintf("Notes cannot be more than %d characters", MaxNotesLength))
	}

	if app.ContactEmail != "" && !validEmail(app.ContactEmail) {
		add("contactEmail", "Please provide a valid email")
	}

	return out
}

func validEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

// structViolations runs tag-based validation on a request struct and turns
// the result into violations using messages, keyed by "field.tag". A failure
// without a message entry falls back to a generic sentence.
func structViolations(s any, messages map[string]string) []apperror.Violation {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []apperror.Violation{{Message: err.Error()}}
	}

	out := make([]apperror.Violation, 0, len(fieldErrs))
	seen := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true

		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, apperror.Violation{Field: field, Message: msg})
	}
	return out
}
