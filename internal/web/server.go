package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/mutate"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

const (
	authNone = "none"
	authDev  = "dev"
)

type ServerConfig struct {
	Addr    string
	Service *mutate.Service
	Bundle  *i18n.Bundle

	// Locale pins the UI language; empty negotiates from Accept-Language.
	Locale string

	AuthMode   string // none|dev
	Actor      string // identity for every request when AuthMode is none
	SecretPath string // session signing key, created on first use

	InstanceID int64
	Logger     *log.Logger
	Now        func() time.Time
}

type Server struct {
	cfg    ServerConfig
	tmpl   *template.Template
	secret []byte
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Locale = strings.TrimSpace(cfg.Locale)
	cfg.Actor = strings.TrimSpace(cfg.Actor)
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	if cfg.Service == nil {
		return nil, errors.New("web: service is nil")
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = authNone
	}
	if cfg.AuthMode != authNone && cfg.AuthMode != authDev {
		return nil, errors.New("web: invalid auth mode (expected none|dev)")
	}
	if cfg.AuthMode == authNone && cfg.Actor == "" {
		return nil, errors.New("web: actor is required when auth mode is none")
	}
	if cfg.InstanceID <= 0 {
		cfg.InstanceID = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "todoblock/web: ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Bundle == nil {
		b, err := i18n.Default()
		if err != nil {
			return nil, err
		}
		cfg.Bundle = b
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"itemCtx": func(l *i18n.Localizer, it itemVM) itemCtx {
			return itemCtx{L: l, Item: it}
		},
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	srv := &Server{cfg: cfg, tmpl: tmpl}
	if cfg.AuthMode == authDev {
		secret, err := loadOrInitSecretKey(cfg.SecretPath)
		if err != nil {
			return nil, err
		}
		srv.secret = secret
	}
	return srv, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/control.js", s.handleStatic("static/control.js", "application/javascript; charset=utf-8"))
	mux.HandleFunc("GET /static/todo.css", s.handleStatic("static/todo.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /login", s.handleLoginGet)
	mux.HandleFunc("POST /login", s.handleLoginPost)
	mux.HandleFunc("POST /logout", s.handleLogoutPost)
	mux.HandleFunc("POST /api/{method}", s.handleRPC)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

func (s *Server) now() time.Time { return s.cfg.Now() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil || len(b) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}

type pageVM struct {
	L          *i18n.Localizer
	InstanceID int64
	AuthMode   string
	Actor      string
	Groups     []model.GroupID
	List       listVM
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	actor := s.actorForRequest(r)
	if actor == "" && s.cfg.AuthMode == authDev {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	loc := s.localizerFor(r)
	vs := model.DefaultViewState()
	vm, err := s.serviceFor(loc).Refresh(r.Context(), actor, vs)
	if err != nil {
		s.logUnexpected("home", err)
		code := codeOf(err)
		http.Error(w, loc.ErrorMessage(err), code.HTTPStatus())
		return
	}

	groups := append([]model.GroupID{model.GroupNone}, model.AllGroups()...)
	s.writeHTMLTemplate(w, http.StatusOK, "page.html", pageVM{
		L:          loc,
		InstanceID: s.cfg.InstanceID,
		AuthMode:   s.cfg.AuthMode,
		Actor:      actor,
		Groups:     groups,
		List:       s.buildList(vm, loc),
	})
}

// localizerFor picks the configured locale, else the request's Accept-Language.
func (s *Server) localizerFor(r *http.Request) *i18n.Localizer {
	if s.cfg.Locale != "" {
		return s.cfg.Bundle.Localizer(s.cfg.Locale)
	}
	return s.cfg.Bundle.Localizer(r.Header.Get("Accept-Language"))
}

// serviceFor returns a copy of the service that labels views in loc.
func (s *Server) serviceFor(loc *i18n.Localizer) *mutate.Service {
	svc := *s.cfg.Service
	svc.Labels = loc
	return &svc
}

func (s *Server) location() *time.Location {
	if s.cfg.Service.Location != nil {
		return s.cfg.Service.Location
	}
	return time.Local
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, status int, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.cfg.Logger.Printf("render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, html)
}
