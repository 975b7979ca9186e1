package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
	"todoblock/internal/mutate"
	"todoblock/internal/store"
)

var testNow = time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

const testInstance = 3

func newTestServer(t *testing.T, mod func(*ServerConfig)) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "todo.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := ServerConfig{
		Service: &mutate.Service{
			Store:    st,
			Location: time.UTC,
			Now:      func() time.Time { return testNow },
		},
		Locale:     "en-US",
		AuthMode:   authNone,
		Actor:      "u1",
		InstanceID: testInstance,
		Logger:     log.New(io.Discard, "", 0),
		Now:        func() time.Time { return testNow },
	}
	if mod != nil {
		mod(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, st
}

func call(t *testing.T, h http.Handler, method string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var b []byte
	switch v := body.(type) {
	case string:
		b = []byte(v)
	default:
		var err error
		b, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/"+method, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if mod != nil {
		mod(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeOK(t *testing.T, rr *httptest.ResponseRecorder) rpcResponse {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200; got %d: %s", rr.Code, rr.Body.String())
	}
	var resp rpcResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder, status int, code apperr.Code) errorDetail {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d; got %d: %s", status, rr.Code, rr.Body.String())
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != code {
		t.Fatalf("expected code %s; got %s", code, body.Error.Code)
	}
	if body.Error.Message == "" {
		t.Fatalf("expected a user-facing message")
	}
	return body.Error
}

func TestAddItem_ReturnsFragmentAndView(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	due := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC).Unix()
	resp := decodeOK(t, call(t, h, "add_item", map[string]any{
		"instanceId": testInstance, "text": "Buy *milk*", "dueDate": due, "groupId": 2,
	}, nil))

	if len(resp.View.Buckets) != 1 || resp.View.Buckets[0].Label != "Thu, 14 Mar" {
		t.Fatalf("unexpected view: %+v", resp.View)
	}
	for _, want := range []string{`id="todo-list-3"`, "Buy <em>milk</em>", "Thu, 14 Mar", `data-control="group"`} {
		if !strings.Contains(resp.HTML, want) {
			t.Fatalf("expected fragment to contain %q; got:\n%s", want, resp.HTML)
		}
	}
}

func TestAllMethodsAreRouted(t *testing.T) {
	srv, st := newTestServer(t, nil)
	h := srv.Handler()
	it, err := st.Create(context.Background(), "u1", "x", nil, model.GroupNone)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	params := map[string]map[string]any{
		"add_item":         {"text": "y"},
		"edit_item":        {"id": it.ID, "text": "z"},
		"toggle_item":      {"id": it.ID, "hide": false},
		"pin_item":         {"id": it.ID},
		"hide_done_items":  {"hide": true},
		"group_items":      {"groupId": 0, "includeHidden": true},
		"refresh_items":    {},
		"delete_completed": {},
		"delete_item":      {"id": it.ID},
	}
	for _, m := range Methods() {
		p, ok := params[m]
		if !ok {
			t.Fatalf("no params for method %s", m)
		}
		p["instanceId"] = testInstance
		decodeOK(t, call(t, h, m, p, nil))
	}
}

func TestRPC_RejectsOwnerParameter(t *testing.T) {
	srv, st := newTestServer(t, nil)
	rr := call(t, srv.Handler(), "add_item", map[string]any{
		"instanceId": testInstance, "text": "x", "ownerId": "someone-else",
	}, nil)
	decodeErr(t, rr, http.StatusBadRequest, apperr.CodeValidation)

	items, _ := st.ListByOwner(context.Background(), "someone-else", model.GroupNone)
	if len(items) != 0 {
		t.Fatalf("expected nothing created for the injected owner")
	}
}

func TestRPC_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	d := decodeErr(t, call(t, h, "add_item", map[string]any{"instanceId": testInstance, "text": "   "}, nil), http.StatusBadRequest, apperr.CodeValidation)
	if d.Field != "text" {
		t.Fatalf("expected field text; got %q", d.Field)
	}
	if d.Message != "Please check your input and try again." {
		t.Fatalf("expected localized message; got %q", d.Message)
	}

	d = decodeErr(t, call(t, h, "group_items", map[string]any{"instanceId": testInstance, "groupId": 7}, nil), http.StatusBadRequest, apperr.CodeValidation)
	if d.Field != "groupId" {
		t.Fatalf("expected field groupId; got %q", d.Field)
	}

	decodeErr(t, call(t, h, "add_item", "", nil), http.StatusBadRequest, apperr.CodeValidation)
	decodeErr(t, call(t, h, "add_item", "{not json", nil), http.StatusBadRequest, apperr.CodeValidation)
}

func TestRPC_NotFound(t *testing.T) {
	srv, st := newTestServer(t, nil)
	h := srv.Handler()

	decodeErr(t, call(t, h, "delete_item", map[string]any{"instanceId": testInstance, "id": 999}, nil), http.StatusNotFound, apperr.CodeNotFound)
	decodeErr(t, call(t, h, "nope", map[string]any{"instanceId": testInstance}, nil), http.StatusNotFound, apperr.CodeNotFound)
	decodeErr(t, call(t, h, "refresh_items", map[string]any{"instanceId": 99}, nil), http.StatusNotFound, apperr.CodeNotFound)

	theirs, err := st.Create(context.Background(), "u2", "secret", nil, model.GroupNone)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	decodeErr(t, call(t, h, "pin_item", map[string]any{"instanceId": testInstance, "id": theirs.ID}, nil), http.StatusNotFound, apperr.CodeNotFound)
}

type failingStore struct{ mutate.ItemStore }

func (failingStore) ListByOwner(context.Context, string, model.GroupID) ([]model.Item, error) {
	return nil, errors.New("disk on fire")
}

func TestRPC_InternalErrorIsLoggedAndGeneric(t *testing.T) {
	var logs bytes.Buffer
	srv, st := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Logger = log.New(&logs, "", 0)
	})
	srv.cfg.Service.Store = failingStore{ItemStore: st}

	d := decodeErr(t, call(t, srv.Handler(), "refresh_items", map[string]any{"instanceId": testInstance}, nil), http.StatusInternalServerError, apperr.CodeInternal)
	if strings.Contains(d.Message, "disk on fire") {
		t.Fatalf("expected internal detail not to leak; got %q", d.Message)
	}
	if !strings.Contains(logs.String(), "refresh_items: list items: disk on fire") {
		t.Fatalf("expected error logged with method; got %q", logs.String())
	}

	logs.Reset()
	call(t, srv.Handler(), "add_item", map[string]any{"instanceId": testInstance, "text": " "}, nil)
	if logs.Len() != 0 {
		t.Fatalf("expected validation errors not to be logged; got %q", logs.String())
	}
}

func TestRPC_Datastar(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rr := call(t, srv.Handler(), "add_item", map[string]any{"instanceId": testInstance, "text": "via signals", "currentGroup": 0}, func(r *http.Request) {
		r.Header.Set("Datastar-Request", "true")
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200; got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream; got %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"datastar-patch-elements", "#todo-list-3", "via signals", "datastar-patch-signals"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected stream to contain %q; got:\n%s", want, body)
		}
	}
}

func TestRPC_LocalizedLabels(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *ServerConfig) { cfg.Locale = "" })
	resp := decodeOK(t, call(t, srv.Handler(), "add_item", map[string]any{"instanceId": testInstance, "text": "x"}, func(r *http.Request) {
		r.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	}))
	if resp.View.Buckets[0].Label != "Allgemein" {
		t.Fatalf("expected German general label; got %q", resp.View.Buckets[0].Label)
	}
}

func TestHome_RendersRegion(t *testing.T) {
	srv, st := newTestServer(t, nil)
	if _, err := st.Create(context.Background(), "u1", "first", nil, model.GroupNone); err != nil {
		t.Fatalf("create: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200; got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{`data-region="todo-instance-3"`, `id="todo-list-3"`, "/static/control.js", "first", "My ToDo list"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for path, ct := range map[string]string{
		"/static/control.js": "application/javascript",
		"/static/todo.css":   "text/css",
		"/health":            "text/plain",
	} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), ct) {
			t.Fatalf("%s: expected 200 %s; got %d %q", path, ct, rr.Code, rr.Header().Get("Content-Type"))
		}
	}
}

func TestDevAuth(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "web", "secret.key")
	srv, _ := newTestServer(t, func(cfg *ServerConfig) {
		cfg.AuthMode = authDev
		cfg.Actor = ""
		cfg.SecretPath = secret
	})
	h := srv.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login; got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	decodeErr(t, call(t, h, "refresh_items", map[string]any{"instanceId": testInstance}, nil), http.StatusUnauthorized, apperr.CodeUnauthorized)

	form := strings.NewReader("actor=alice")
	req := httptest.NewRequest(http.MethodPost, "/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected login redirect; got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName {
		t.Fatalf("expected session cookie; got %+v", cookies)
	}

	withCookie := func(r *http.Request) { r.AddCookie(cookies[0]) }
	decodeOK(t, call(t, h, "add_item", map[string]any{"instanceId": testInstance, "text": "mine"}, withCookie))

	tampered := *cookies[0]
	tampered.Value = tampered.Value + "x"
	decodeErr(t, call(t, h, "refresh_items", map[string]any{"instanceId": testInstance}, func(r *http.Request) {
		r.AddCookie(&tampered)
	}), http.StatusUnauthorized, apperr.CodeUnauthorized)
}

func TestVerifyToken(t *testing.T) {
	secret := []byte("k")
	tok, err := newSessionToken(secret, "alice", testNow, time.Hour)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	sp, err := verifyToken(secret, tok, testNow)
	if err != nil || sp.Sub != "alice" || sp.Typ != "session" {
		t.Fatalf("expected valid token; got %+v (%v)", sp, err)
	}
	if _, err := verifyToken(secret, tok, testNow.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
	if _, err := verifyToken([]byte("other"), tok, testNow); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}
	if _, err := verifyToken(secret, "garbage", testNow); err == nil {
		t.Fatalf("expected malformed token to fail")
	}
}

func TestRenderItemText(t *testing.T) {
	cases := map[string]string{
		"plain":              "plain",
		"a <b>bold</b>":      "a &lt;b&gt;bold&lt;/b&gt;",
		"*em* and ~~gone~~":  "<em>em</em> and <del>gone</del>",
		"# not a heading":    "# not a heading",
		"[x](javascript:ev)": `<a href="">x</a>`,
	}
	for in, want := range cases {
		if got := string(renderItemText(in)); got != want {
			t.Fatalf("renderItemText(%q): expected %q; got %q", in, want, got)
		}
	}
}
