// Package page describes the bulk-edit pages of the portal: their form naming, their editable fields
// and the values a select field accepts.
package page

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/bulkedit"
)

// Application statuses
const (
	StatusSubmitted = "SUBMITTED"
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusAllocated = "ALLOCATED"
	StatusAccepted  = "ACCEPTED"
	StatusDeclined  = "DECLINED"
)

// Payment statuses
const (
	PaymentPending  = "PENDING"
	PaymentVerified = "VERIFIED"
	PaymentRejected = "REJECTED"
)

var (
	ErrUnknownPage  = errors.New("unknown page")
	ErrUnknownField = errors.New("field is not editable on this page")

	SeatManagement = Page{
		Name:   "seats",
		Title:  "Seat Management",
		Path:   "/teacher/seat-management/bulk-update",
		Form:   bulkedit.SeatForm,
		Fields: []string{"status", "course", "allocatedBranch"},
		Choices: map[string][]string{
			"status": {
				StatusSubmitted, StatusPending, StatusApproved, StatusRejected,
				StatusAllocated, StatusAccepted, StatusDeclined,
			},
		},
	}

	PaymentManagement = Page{
		Name:   "payments",
		Title:  "Payment Management",
		Path:   "/teacher/payment-management/bulk-update",
		Form:   bulkedit.PaymentForm,
		Fields: []string{"status"},
		Choices: map[string][]string{
			"status": {PaymentPending, PaymentVerified, PaymentRejected},
		},
	}

	pages = map[string]Page{
		SeatManagement.Name:    SeatManagement,
		PaymentManagement.Name: PaymentManagement,
	}
)

// Page is one bulk-edit view of the portal.
type Page struct {
	Name    string
	Title   string
	Path    string // bulk update endpoint, relative to the portal base URL
	Form    bulkedit.FormNames
	Fields  []string
	Choices map[string][]string // {field: allowed values}; free text when absent
}

// Lookup returns the page registered under `name` ("seats" or "payments").
func Lookup(name string) (Page, error) {
	p, ok := pages[core.CleanString(name, true /* lower */)]
	if !ok {
		return Page{}, errors.Wrap(ErrUnknownPage, name)
	}
	return p, nil
}

// Names returns the registered page names, sorted.
func Names() []string {
	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Page) Editable(field string) bool {
	for _, f := range p.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ValidateEdit checks `value` may be entered in `field`.
func (p Page) ValidateEdit(validate *validator.Validate, field, value string) error {
	if !p.Editable(field) {
		return core.NewValidationError(
			errors.Wrap(ErrUnknownField, field),
			core.FieldError{Field: field, Error: ErrUnknownField.Error()},
		)
	}
	choices, ok := p.Choices[field]
	if !ok {
		return nil
	}
	if err := validate.Var(value, "required,oneof="+strings.Join(choices, " ")); err != nil {
		return core.NewValidationError(
			errors.Wrap(err, field),
			core.FieldError{Field: field, Error: "must be one of " + strings.Join(choices, ", ")},
		)
	}
	return nil
}
