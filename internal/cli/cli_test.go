package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoblock/internal/mutate"
	"todoblock/internal/store"
	"todoblock/internal/web"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("TODOBLOCK_HOME", home)
	t.Setenv("TODOBLOCK_TIMEZONE", "UTC")
	for _, k := range []string{"TODOBLOCK_CONFIG", "TODOBLOCK_SERVER", "TODOBLOCK_FORMAT", "TODOBLOCK_ACTOR", "TODOBLOCK_LOCALE", "TODOBLOCK_DB", "TODOBLOCK_AUTH_MODE", "TODOBLOCK_INSTANCE_ID"} {
		t.Setenv(k, "") // restored after the test
		_ = os.Unsetenv(k)
	}
	return home
}

func runCLI(t *testing.T, stdin string, args ...string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

type envelope struct {
	Data struct {
		Pinned  []itemJSON `json:"pinned"`
		Buckets []struct {
			Label string     `json:"label"`
			Items []itemJSON `json:"items"`
		} `json:"buckets"`
		CurrentGroup   int  `json:"currentGroup"`
		IncludeHidden  bool `json:"includeHidden"`
		HasHiddenItems bool `json:"hasHiddenItems"`
	} `json:"data"`
}

type itemJSON struct {
	ID      int64  `json:"id"`
	OwnerID string `json:"ownerId"`
	Text    string `json:"text"`
	Done    bool   `json:"done"`
	GroupID int    `json:"groupId"`
}

func (e envelope) items() []itemJSON {
	out := append([]itemJSON{}, e.Data.Pinned...)
	for _, b := range e.Data.Buckets {
		out = append(out, b.Items...)
	}
	return out
}

func mustRun(t *testing.T, args ...string) envelope {
	t.Helper()
	stdout, stderr, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("command failed: todoblock %v\nerr: %v\nstderr:\n%s", args, err, stderr)
	}
	var env envelope
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout: %v\nstdout:\n%s", err, stdout)
	}
	return env
}

func TestItems_AddListToggleHide(t *testing.T) {
	setupHome(t)

	env := mustRun(t, "items", "add", "Buy", "milk", "--due", "2099-01-02", "--group", "2")
	if len(env.Data.Buckets) != 1 || env.Data.Buckets[0].Label != "Fri, 2 Jan" {
		t.Fatalf("unexpected buckets: %+v", env.Data.Buckets)
	}
	milk := env.items()[0]
	if milk.Text != "Buy milk" || milk.OwnerID != "local" || milk.GroupID != 2 {
		t.Fatalf("unexpected item: %+v", milk)
	}

	env = mustRun(t, "items", "add", "Later")
	if len(env.Data.Buckets) != 2 || env.Data.Buckets[1].Label != "General" {
		t.Fatalf("expected general bucket last; got %+v", env.Data.Buckets)
	}

	id := itoa(milk.ID)
	env = mustRun(t, "items", "toggle", id)
	if !env.items()[0].Done {
		t.Fatalf("expected item done")
	}

	env = mustRun(t, "items", "hide-done")
	if env.Data.IncludeHidden || len(env.items()) != 1 || !env.Data.HasHiddenItems {
		t.Fatalf("expected done item hidden; got %+v", env.Data)
	}

	env = mustRun(t, "items", "list", "--hide-done")
	if len(env.items()) != 1 {
		t.Fatalf("expected hidden item left out; got %+v", env.items())
	}
	env = mustRun(t, "items", "list")
	if len(env.items()) != 2 {
		t.Fatalf("expected hidden item included by default; got %+v", env.items())
	}

	env = mustRun(t, "items", "group", "2")
	if env.Data.CurrentGroup != 2 || len(env.items()) != 1 {
		t.Fatalf("expected group filter; got %+v", env.Data)
	}
}

func TestItems_ActorsAreIsolated(t *testing.T) {
	setupHome(t)
	mine := mustRun(t, "--actor", "alice", "items", "add", "secret")
	id := itoa(mine.items()[0].ID)

	theirs := mustRun(t, "--actor", "bob", "items", "list")
	if len(theirs.items()) != 0 {
		t.Fatalf("expected bob to see nothing; got %+v", theirs.items())
	}
	_, stderr, err := runCLI(t, "", "--actor", "bob", "items", "pin", id)
	if err == nil || !strings.HasPrefix(string(stderr), "NOT_FOUND: ") {
		t.Fatalf("expected NOT_FOUND; got err=%v stderr=%q", err, stderr)
	}
}

func TestItems_DeleteAsksFirst(t *testing.T) {
	setupHome(t)
	env := mustRun(t, "items", "add", "Keep", "me")
	id := itoa(env.items()[0].ID)

	_, stderr, err := runCLI(t, "n\n", "items", "delete", id)
	if err == nil {
		t.Fatalf("expected refusal to be an error")
	}
	if !strings.Contains(string(stderr), "Are you sure you want to delete Keep me? [y/N]") {
		t.Fatalf("expected prompt; got %q", stderr)
	}
	if len(mustRun(t, "items", "list").items()) != 1 {
		t.Fatalf("expected item kept")
	}

	if _, _, err := runCLI(t, "y\n", "items", "delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(mustRun(t, "items", "list").items()) != 0 {
		t.Fatalf("expected item deleted")
	}
}

func TestItems_ClearDone(t *testing.T) {
	setupHome(t)
	a := mustRun(t, "items", "add", "a")
	mustRun(t, "items", "add", "b")
	mustRun(t, "items", "toggle", itoa(a.items()[0].ID))

	env := mustRun(t, "items", "clear-done", "--yes")
	if len(env.items()) != 1 || env.items()[0].Text != "b" {
		t.Fatalf("expected only open item left; got %+v", env.items())
	}
}

func TestItems_ValidationErrors(t *testing.T) {
	setupHome(t)
	cases := [][]string{
		{"items", "add", "  "},
		{"items", "add", "x", "--group", "9"},
		{"items", "add", "x", "--due", "tomorrow"},
		{"items", "pin", "abc"},
	}
	for _, args := range cases {
		_, stderr, err := runCLI(t, "", args...)
		if err == nil || !strings.HasPrefix(string(stderr), "VALIDATION: ") {
			t.Fatalf("%v: expected VALIDATION; got err=%v stderr=%q", args, err, stderr)
		}
	}
}

func TestItems_EDN(t *testing.T) {
	setupHome(t)
	stdout, _, err := runCLI(t, "", "--format", "edn", "items", "add", "edn item")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "{:data {") || !strings.Contains(string(stdout), `:text "edn item"`) {
		t.Fatalf("unexpected edn: %s", stdout)
	}

	if _, _, err := runCLI(t, "", "--format", "yaml", "items", "list"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestView(t *testing.T) {
	setupHome(t)
	mustRun(t, "items", "add", "Read *book*", "--group", "3")

	stdout, _, err := runCLI(t, "", "view", "--no-color")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	for _, want := range []string{"My ToDo list", "General", "[ ] Read *book* (Green)"} {
		if !strings.Contains(string(stdout), want) {
			t.Fatalf("expected %q in:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, "", "view", "--raw")
	if err != nil {
		t.Fatalf("view --raw: %v", err)
	}
	if !strings.Contains(string(stdout), `- [ ] Read \*book\* *Green*`) {
		t.Fatalf("unexpected markdown:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, "", "view", "--markdown", "--no-color")
	if err != nil {
		t.Fatalf("view --markdown: %v", err)
	}
	if !strings.Contains(string(stdout), "Read *book*") {
		t.Fatalf("expected rendered markdown; got:\n%s", stdout)
	}
}

func TestConfigShowAndLocales(t *testing.T) {
	home := setupHome(t)
	t.Setenv("TODOBLOCK_INSTANCE_ID", "7")

	stdout, _, err := runCLI(t, "", "--locale", "de-DE", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var cfg struct {
		Data struct {
			DBPath     string `json:"dbPath"`
			Locale     string `json:"locale"`
			InstanceID int64  `json:"instanceId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(stdout, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Data.DBPath != filepath.Join(home, "todo.sqlite") || cfg.Data.Locale != "de-DE" || cfg.Data.InstanceID != 7 {
		t.Fatalf("unexpected config: %+v", cfg.Data)
	}

	stdout, _, err = runCLI(t, "", "locales")
	if err != nil {
		t.Fatalf("locales: %v", err)
	}
	if !strings.Contains(string(stdout), `"locale":"en-US"`) || !strings.Contains(string(stdout), `"locale":"de-DE"`) {
		t.Fatalf("unexpected locales: %s", stdout)
	}
}

func TestItems_RemoteServer(t *testing.T) {
	setupHome(t)
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "remote.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	srv, err := web.NewServer(web.ServerConfig{
		Service:    &mutate.Service{Store: st, Location: time.UTC},
		Actor:      "remote-user",
		InstanceID: 1,
		Locale:     "en-US",
		Logger:     log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	env := mustRun(t, "--server", ts.URL, "items", "add", "over the wire")
	if it := env.items(); len(it) != 1 || it[0].OwnerID != "remote-user" {
		t.Fatalf("expected item owned by the server's actor; got %+v", it)
	}
	if len(mustRun(t, "items", "list").items()) != 0 {
		t.Fatalf("expected local database untouched")
	}

	_, stderr, err := runCLI(t, "", "--server", ts.URL, "items", "toggle", "999")
	if err == nil || !strings.Contains(string(stderr), "NOT_FOUND: That item no longer exists.") {
		t.Fatalf("expected localized remote error; got err=%v stderr=%q", err, stderr)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
