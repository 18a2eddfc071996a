package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
)

// CSRFCookieName is the name of the CSRF cookie.
const CSRFCookieName = "__livehooks_csrf"

// GenerateCSRFToken returns a new token: a random 16-byte nonce, followed
// by its HMAC-SHA256 when a secret is configured, base64url encoded.
func (s *Server) GenerateCSRFToken() string {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		// Weak tokens are worse than no server.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	if s.config.CSRFSecret == nil {
		return base64.URLEncoding.EncodeToString(nonce)
	}

	h := hmac.New(sha256.New, s.config.CSRFSecret)
	h.Write(nonce)
	token := append(nonce, h.Sum(nil)...)
	return base64.URLEncoding.EncodeToString(token)
}

// validateCSRF checks token against the cookie (double submit) and, with
// a secret configured, its signature.
func (s *Server) validateCSRF(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	if !hmac.Equal([]byte(token), []byte(cookie.Value)) {
		return false
	}
	if s.config.CSRFSecret == nil {
		return true
	}

	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(decoded) != 48 {
		return false
	}
	nonce, sig := decoded[:16], decoded[16:]
	h := hmac.New(sha256.New, s.config.CSRFSecret)
	h.Write(nonce)
	return hmac.Equal(sig, h.Sum(nil))
}

// setCSRFCookie sets the cookie half of the double submit. It stays
// readable by scripts.
func (s *Server) setCSRFCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.config.SecureCookies || r.TLS != nil,
	})
}
