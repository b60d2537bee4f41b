package auth

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	bearerPrefix  = "Bearer "
	sessionCookie = "session="
)

// ExtractToken finds the session token of an incoming request. Sources in
// priority order: a single "Authorization: Bearer" header, a single "token"
// query parameter, then the first "session" cookie. Multi-valued headers and
// query parameters count as absent.
func ExtractToken(header http.Header, query url.Values) (string, bool) {
	if values := header.Values("Authorization"); len(values) == 1 {
		if token, ok := strings.CutPrefix(values[0], bearerPrefix); ok {
			return token, true
		}
	}

	if values, ok := query["token"]; ok && len(values) == 1 {
		return values[0], true
	}

	if cookie := header.Get("Cookie"); cookie != "" {
		for _, segment := range strings.Split(cookie, ";") {
			if token, ok := strings.CutPrefix(strings.TrimSpace(segment), sessionCookie); ok {
				return token, true
			}
		}
	}
	return "", false
}
