package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"todoblock": main,
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			home := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			env.Setenv("TODOBLOCK_HOME", home)
			env.Setenv("TODOBLOCK_TIMEZONE", "UTC")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"itemid": cmdItemID,
		},
	})
}

// cmdItemID finds an item by text in a JSON view envelope and stores its id in an env var.
func cmdItemID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("itemid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: itemid FILE TEXT VAR")
	}

	type item struct {
		ID   int64  `json:"id"`
		Text string `json:"text"`
	}
	var env struct {
		Data struct {
			Pinned  []item `json:"pinned"`
			Buckets []struct {
				Items []item `json:"items"`
			} `json:"buckets"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(ts.ReadFile(args[0])), &env); err != nil {
		ts.Fatalf("parse view: %v", err)
	}
	all := env.Data.Pinned
	for _, b := range env.Data.Buckets {
		all = append(all, b.Items...)
	}
	for _, it := range all {
		if it.Text == args[1] {
			ts.Setenv(args[2], strconv.FormatInt(it.ID, 10))
			return
		}
	}
	ts.Fatalf("item with text %q not found", args[1])
}

func TestRewriteItemShortcuts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"todoblock"},
			want: []string{"todoblock"},
		},
		{
			name: "bare verb",
			in:   []string{"todoblock", "add", "milk"},
			want: []string{"todoblock", "items", "add", "milk"},
		},
		{
			name: "verb after value flag",
			in:   []string{"todoblock", "--actor", "bob", "list"},
			want: []string{"todoblock", "--actor", "bob", "items", "list"},
		},
		{
			name: "verb after equals flag",
			in:   []string{"todoblock", "--actor=bob", "pin", "3"},
			want: []string{"todoblock", "--actor=bob", "items", "pin", "3"},
		},
		{
			name: "verb after bool flag",
			in:   []string{"todoblock", "--pretty", "list"},
			want: []string{"todoblock", "--pretty", "items", "list"},
		},
		{
			name: "flag value that looks like a verb",
			in:   []string{"todoblock", "--actor", "list", "view"},
			want: []string{"todoblock", "--actor", "list", "view"},
		},
		{
			name: "items subcommand not rewritten",
			in:   []string{"todoblock", "items", "add", "milk"},
			want: []string{"todoblock", "items", "add", "milk"},
		},
		{
			name: "other command not rewritten",
			in:   []string{"todoblock", "serve", "list"},
			want: []string{"todoblock", "serve", "list"},
		},
		{
			name: "double dash stops",
			in:   []string{"todoblock", "--", "add"},
			want: []string{"todoblock", "--", "add"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteItemShortcuts(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteItemShortcuts:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
