package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockroom/internal/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists rejected fields keyed by their JSON path.
type ValidationError struct {
	Entity string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("inventory: invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

func validateSupplier(s Supplier) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Entity: "supplier", Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		if idx := strings.Index(path, "."); idx >= 0 {
			path = path[idx+1:]
		}
		out.Fields[path] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// tidySupplier trims text fields and puts the delivery schedule in week order.
func tidySupplier(s Supplier) Supplier {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Contact.Email = strings.TrimSpace(s.Contact.Email)
	s.Contact.Website = strings.TrimSpace(s.Contact.Website)
	s.Business.PaymentTerms = strings.ToLower(strings.TrimSpace(s.Business.PaymentTerms))
	if s.Status == "" {
		s.Status = SupplierActive
	}
	if len(s.Business.DeliveryDays) > 0 {
		seen := make(map[string]bool, len(s.Business.DeliveryDays))
		for _, d := range s.Business.DeliveryDays {
			seen[strings.ToLower(strings.TrimSpace(d))] = true
		}
		days := make([]string, 0, len(seen))
		for _, d := range Weekdays {
			if seen[d] {
				days = append(days, d)
				delete(seen, d)
			}
		}
		// unknown names stay so validation can reject them
		rest := make([]string, 0, len(seen))
		for d := range seen {
			rest = append(rest, d)
		}
		sort.Strings(rest)
		s.Business.DeliveryDays = append(days, rest...)
	}
	return s
}

// FieldErrors exposes the rejected fields to HTTP error mapping.
func (e *ValidationError) FieldErrors() map[string]string { return e.Fields }
