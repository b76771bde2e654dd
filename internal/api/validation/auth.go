package validation

import (
	"strings"

	"github.com/coldtrace/coldtrace/internal/user"
)

// SignInRequest mirrors the fields needed for sign-in validation.
type SignInRequest struct {
	Email    string
	Password string
}

// ValidateSignInRequest only checks presence. Format checks would leak which
// emails can exist.
func ValidateSignInRequest(req SignInRequest) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}
	return errs
}

// SignUpRequest mirrors the fields needed for sign-up validation.
type SignUpRequest struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// ValidateSignUpRequest validates a self-service account request.
func ValidateSignUpRequest(req SignUpRequest) []FieldError {
	var errs []FieldError
	errs = append(errs, validateEmail("email", req.Email)...)
	errs = append(errs, validateName("name", req.Name, true)...)
	errs = append(errs, validateNewPassword("password", req.Password)...)

	if req.Role != "" {
		role, err := user.ParseRole(req.Role)
		if err != nil {
			errs = append(errs, FieldError{Field: "role", Message: "role must be one of pharmacist, technician, user"})
		} else if role == user.RoleAdmin {
			errs = append(errs, FieldError{Field: "role", Message: "admin accounts cannot be requested"})
		}
	}
	return errs
}
