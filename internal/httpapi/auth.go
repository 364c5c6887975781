package httpapi

import (
	"net/http"
	"strings"

	"energyexchange/internal/apperr"
)

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// authenticate resolves the request's bearer token to a username,
// returning unauthorized if it is missing, malformed, or unknown
// (spec §4.2 "an unknown token is simply absence").
func (s *Server) authenticate(r *http.Request) (string, error) {
	token, ok := bearerToken(r)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, "missing bearer token")
	}
	username, ok := s.identity.ResolveToken(token)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, "invalid or expired token")
	}
	return username, nil
}

func (s *Server) authenticateAdmin(r *http.Request) error {
	token, ok := bearerToken(r)
	if !ok || token != s.adminToken {
		return apperr.New(apperr.Unauthorized, "invalid admin token")
	}
	return nil
}
