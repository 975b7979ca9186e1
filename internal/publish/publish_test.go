package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoblock/internal/model"
	"todoblock/internal/view"
)

type testLabels struct{}

func (testLabels) String(key string) string { return "<" + key + ">" }

func (testLabels) GroupLabel(g model.GroupID) string { return "group" + string(rune('0'+int(g))) }

func sampleView() view.ViewModel {
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	return view.ViewModel{
		Pinned: []model.Item{{ID: 1, Text: "Pinned *thing*", Pinned: true, CreatedAt: now}},
		Buckets: []view.Bucket{
			{Label: "Tue, 12 Mar", Overdue: true, Items: []model.Item{{ID: 2, Text: "Late", GroupID: 3}}},
			{Label: "Wed, 13 Mar", Today: true, Items: []model.Item{{ID: 3, Text: "Now", Done: true}}},
			{Label: "General", Items: []model.Item{{ID: 4, Text: "Whenever"}}},
		},
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	t.Parallel()

	md := RenderMarkdown(sampleView(), testLabels{})
	for _, want := range []string{
		"# <pluginname>\n",
		"## <pinned>\n\n- [ ] Pinned \\*thing\\*\n",
		"## Tue, 12 Mar (<overdue>)\n\n- [ ] Late *group3*\n",
		"## Wed, 13 Mar (<today>)\n\n- [x] ~~Now~~\n",
		"## General\n\n- [ ] Whenever\n",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q; got:\n%s", want, md)
		}
	}
	if strings.Index(md, "Late") > strings.Index(md, "Whenever") {
		t.Fatalf("expected buckets in view order; got:\n%s", md)
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	t.Parallel()

	md := RenderMarkdown(view.ViewModel{}, testLabels{})
	if md != "# <pluginname>\n\n<empty>\n" {
		t.Fatalf("unexpected empty markdown: %q", md)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"alice":         "todo-alice.md",
		"bob@example":   "todo-bob-example.md",
		"  ../../etc  ": "todo-etc.md",
		"":              "todo-list.md",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q): expected %q; got %q", in, want, got)
		}
	}
}

func TestWriteList_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	res, err := WriteList(sampleView(), testLabels{}, dir, WriteOptions{ActorID: "alice"})
	if err != nil {
		t.Fatalf("WriteList: %v", err)
	}
	want := filepath.Join(dir, "todo-alice.md")
	if len(res.Written) != 1 || res.Written[0] != want {
		t.Fatalf("expected %q written; got %#v", want, res.Written)
	}
	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "Whenever") {
		t.Fatalf("expected list in file; got:\n%s", b)
	}

	if _, err := WriteList(sampleView(), testLabels{}, dir, WriteOptions{ActorID: "alice"}); err == nil || !strings.Contains(err.Error(), "file exists") {
		t.Fatalf("expected file exists error; got %v", err)
	}
	if _, err := WriteList(view.ViewModel{}, testLabels{}, dir, WriteOptions{ActorID: "alice", Overwrite: true}); err != nil {
		t.Fatalf("WriteList overwrite: %v", err)
	}
	b, _ = os.ReadFile(want)
	if strings.Contains(string(b), "Whenever") {
		t.Fatalf("expected overwritten file; got:\n%s", b)
	}
}

func TestWriteList_RequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := WriteList(view.ViewModel{}, testLabels{}, "  ", WriteOptions{}); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
