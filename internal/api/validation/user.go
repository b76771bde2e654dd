package validation

import (
	"github.com/coldtrace/coldtrace/internal/user"
)

// CreateUserRequest mirrors the fields needed for admin provisioning validation.
type CreateUserRequest struct {
	Email       string
	Name        string
	Password    string // optional: invited accounts have no password yet
	Role        string
	PharmacyIDs []string
}

// ValidateCreateUserRequest validates the fields of an admin provisioning request.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError
	errs = append(errs, validateEmail("email", req.Email)...)
	errs = append(errs, validateName("name", req.Name, true)...)
	if req.Password != "" {
		errs = append(errs, validateNewPassword("password", req.Password)...)
	}

	if req.Role == "" {
		errs = append(errs, FieldError{Field: "role", Message: "role is required"})
	} else if _, err := user.ParseRole(req.Role); err != nil {
		errs = append(errs, FieldError{Field: "role", Message: "role must be one of admin, pharmacist, technician, user"})
	}

	if _, fieldErrs := ParseUUIDs("pharmacyIds", req.PharmacyIDs); fieldErrs != nil {
		errs = append(errs, fieldErrs...)
	}
	return errs
}

// ValidateSetPasswordRequest validates an admin password reset.
func ValidateSetPasswordRequest(password string) []FieldError {
	return validateNewPassword("password", password)
}

// ValidateAssignmentsRequest validates a pharmacy assignment replacement.
// A nil list is rejected so that clearing assignments must be explicit.
func ValidateAssignmentsRequest(pharmacyIDs []string) []FieldError {
	if pharmacyIDs == nil {
		return []FieldError{{Field: "pharmacyIds", Message: "pharmacyIds is required"}}
	}
	_, errs := ParseUUIDs("pharmacyIds", pharmacyIDs)
	return errs
}
