package handler

import (
	"time"

	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/pharmacy"
	"github.com/coldtrace/coldtrace/internal/user"
)

const timeFormat = "2006-01-02T15:04:05Z"

type userResponse struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Role           string   `json:"role"`
	ApprovalStatus string   `json:"approvalStatus"`
	IsApproved     bool     `json:"isApproved"`
	IsActive       bool     `json:"isActive"`
	HasPassword    bool     `json:"hasPassword"`
	PharmacyIDs    []string `json:"pharmacyIds"`
	ApprovedAt     *string  `json:"approvedAt,omitempty"`
	CreatedAt      string   `json:"createdAt"`
}

func toUserResponse(u *user.User) userResponse {
	ids := make([]string, 0, len(u.PharmacyIDs))
	for _, id := range u.PharmacyIDs {
		ids = append(ids, id.String())
	}
	resp := userResponse{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		Role:           string(u.Role),
		ApprovalStatus: string(u.ApprovalStatus),
		IsApproved:     u.IsApproved(),
		IsActive:       u.IsActive,
		HasPassword:    u.HasPassword(),
		PharmacyIDs:    ids,
		CreatedAt:      formatTime(u.CreatedAt),
	}
	if u.ApprovedAt != nil {
		approved := formatTime(*u.ApprovedAt)
		resp.ApprovedAt = &approved
	}
	return resp
}

type scopeResponse struct {
	All         bool     `json:"all"`
	PharmacyIDs []string `json:"pharmacyIds"`
}

type sessionResponse struct {
	UserID    string        `json:"userId"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      string        `json:"role"`
	Approved  bool          `json:"approved"`
	Scope     scopeResponse `json:"scope"`
	ExpiresAt string        `json:"expiresAt"`
}

func toSessionResponse(c *auth.Claims) sessionResponse {
	ids := make([]string, 0, len(c.Scope.PharmacyIDs))
	for _, id := range c.Scope.PharmacyIDs {
		ids = append(ids, id.String())
	}
	var expires string
	if c.ExpiresAt != nil {
		expires = formatTime(c.ExpiresAt.Time)
	}
	return sessionResponse{
		UserID:    c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		Role:      string(c.Role),
		Approved:  c.Approved,
		Scope:     scopeResponse{All: c.Scope.All, PharmacyIDs: ids},
		ExpiresAt: expires,
	}
}

type pharmacyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CreatedAt string `json:"createdAt"`
}

func toPharmacyResponse(p *pharmacy.Pharmacy) pharmacyResponse {
	return pharmacyResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Address:   p.Address,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
