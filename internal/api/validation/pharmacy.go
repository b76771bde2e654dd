package validation

import "strings"

// CreatePharmacyRequest mirrors the fields needed for create pharmacy validation.
type CreatePharmacyRequest struct {
	Name    string
	Address string
}

// ValidateCreatePharmacyRequest validates the fields of a create pharmacy request.
func ValidateCreatePharmacyRequest(req CreatePharmacyRequest) []FieldError {
	var errs []FieldError
	errs = append(errs, validateName("name", req.Name, true)...)
	if len(strings.TrimSpace(req.Address)) > 500 {
		errs = append(errs, FieldError{Field: "address", Message: "address must be at most 500 characters"})
	}
	return errs
}
