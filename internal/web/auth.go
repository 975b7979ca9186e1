package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"todoblock/internal/i18n"
)

const (
	sessionCookieName = "todoblock_web_session"
	sessionTTL        = 30 * 24 * time.Hour
)

type signedPayload struct {
	Exp int64  `json:"exp"`
	Sub string `json:"sub"`           // actor id
	Typ string `json:"typ,omitempty"` // "session"
	N   string `json:"n,omitempty"`   // nonce
}

func loadOrInitSecretKey(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("web: secret path is empty")
	}
	if b, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	enc := base64.RawURLEncoding.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(enc+"\n"), 0o600); err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

func signToken(secret []byte, payload signedPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return p + "." + sig, nil
}

func verifyToken(secret []byte, token string, now time.Time) (signedPayload, error) {
	token = strings.TrimSpace(token)
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return signedPayload{}, errors.New("invalid token format")
	}
	p, sig := parts[0], parts[1]

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	want := mac.Sum(nil)
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return signedPayload{}, errors.New("invalid token signature")
	}
	if !hmac.Equal(want, got) {
		return signedPayload{}, errors.New("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(p)
	if err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	var sp signedPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	if sp.Exp == 0 {
		return signedPayload{}, errors.New("token missing exp")
	}
	if now.Unix() > sp.Exp {
		return signedPayload{}, errors.New("token expired")
	}
	if strings.TrimSpace(sp.Sub) == "" {
		return signedPayload{}, errors.New("token missing sub")
	}
	return sp, nil
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func newSessionToken(secret []byte, actorID string, now time.Time, ttl time.Duration) (string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", errors.New("missing actor")
	}
	n, err := newNonce()
	if err != nil {
		return "", err
	}
	return signToken(secret, signedPayload{
		Typ: "session",
		Sub: actorID,
		N:   n,
		Exp: now.Add(ttl).Unix(),
	})
}

// actorForRequest derives the caller identity. It never reads identity from
// request parameters.
func (s *Server) actorForRequest(r *http.Request) string {
	if s.cfg.AuthMode != authDev {
		return s.cfg.Actor
	}
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	sp, err := verifyToken(s.secret, c.Value, s.now())
	if err != nil || sp.Typ != "session" {
		return ""
	}
	return strings.TrimSpace(sp.Sub)
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type loginVM struct {
	L     *i18n.Localizer
	Actor string
	Error string
}

func (s *Server) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthMode != authDev {
		http.NotFound(w, r)
		return
	}
	s.writeHTMLTemplate(w, http.StatusOK, "login.html", loginVM{L: s.localizerFor(r)})
}

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthMode != authDev {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	actorID := strings.TrimSpace(r.Form.Get("actor"))
	if actorID == "" {
		s.writeHTMLTemplate(w, http.StatusBadRequest, "login.html", loginVM{L: s.localizerFor(r), Error: "actor is required"})
		return
	}
	sess, err := newSessionToken(s.secret, actorID, s.now(), sessionTTL)
	if err != nil {
		s.cfg.Logger.Printf("login: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, sess, 0)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthMode != authDev {
		http.NotFound(w, r)
		return
	}
	setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
