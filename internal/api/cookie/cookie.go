// Package cookie reads and writes the session cookie.
package cookie

import (
	"net/http"
	"time"
)

// Jar holds the attributes of the single session cookie.
type Jar struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Set writes the session token as an HTTP-only, same-site lax cookie for the whole site.
func (j Jar) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(j.TTL.Seconds()),
		Expires:  time.Now().Add(j.TTL),
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie immediately.
func (j Jar) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the session token, or "" when the cookie is absent.
func (j Jar) Read(r *http.Request) string {
	c, err := r.Cookie(j.Name)
	if err != nil {
		return ""
	}
	return c.Value
}
