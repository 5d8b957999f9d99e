package handler

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	// SessionCookie carries the cart session for browsers.
	SessionCookie = "sf_cart"
	// SessionHeader carries the cart session for API clients and is echoed
	// on every cart response.
	SessionHeader = "X-Cart-Session"
)

// cartSession returns the caller's cart session, starting a new one when the
// request carries none or an ID that is not a UUID.
func (h *Handler) cartSession(w http.ResponseWriter, r *http.Request) string {
	id := RequestSession(r)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, h.sessionCookie(id, int(h.sessionTTL.Seconds())))
	}
	w.Header().Set(SessionHeader, id)
	return id
}

// RequestSession returns the valid cart session carried by r, reading the
// header before the cookie, or "".
func RequestSession(r *http.Request) string {
	if v := r.Header.Get(SessionHeader); validSession(v) {
		return v
	}
	if c, err := r.Cookie(SessionCookie); err == nil && validSession(c.Value) {
		return c.Value
	}
	return ""
}

func validSession(v string) bool {
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
