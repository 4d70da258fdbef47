package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// ExtractBearerToken returns the token from the Authorization header, or an
// empty string when absent.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return ""
}

// ExtractToken looks for a token first in the Authorization header, then in
// the given query parameter. Browser WebSocket clients cannot set headers, so
// the realtime gateway passes tokens via query string.
func ExtractToken(r *http.Request, queryParam string) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if queryParam == "" {
		queryParam = "token"
	}
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}
