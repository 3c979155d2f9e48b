package security

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName = "refreshToken"
	// Access token cookie read by the authentication middleware before the bearer header.
	AccessCookieName = "token"
)

func refreshCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure, // production only
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}

func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, refreshCookie(token, int(ttl.Seconds()), secure))
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, refreshCookie("", -1, secure))
}

func ReadRefreshToken(r *http.Request) (string, error) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func ReadAccessCookie(r *http.Request) string {
	c, err := r.Cookie(AccessCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
