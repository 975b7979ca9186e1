package publish

import (
	"fmt"
	"strings"

	"todoblock/internal/model"
	"todoblock/internal/view"
)

// Labels is the subset of a localizer the markdown renderer needs.
type Labels interface {
	String(key string) string
	GroupLabel(g model.GroupID) string
}

// RenderMarkdown renders vm as a markdown task list: a title, the pinned
// section, then one section per bucket in view order.
func RenderMarkdown(vm view.ViewModel, l Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", l.String("pluginname"))
	if vm.Empty() {
		fmt.Fprintf(&b, "\n%s\n", l.String("empty"))
		return b.String()
	}

	list := func(items []model.Item) {
		b.WriteString("\n")
		for _, it := range items {
			box := "[ ]"
			text := EscapeMarkdown(it.Text)
			if it.Done {
				box = "[x]"
				text = "~~" + text + "~~"
			}
			fmt.Fprintf(&b, "- %s %s", box, text)
			if it.GroupID != model.GroupNone {
				fmt.Fprintf(&b, " *%s*", l.GroupLabel(it.GroupID))
			}
			b.WriteString("\n")
		}
	}

	if len(vm.Pinned) > 0 {
		fmt.Fprintf(&b, "\n## %s\n", l.String("pinned"))
		list(vm.Pinned)
	}
	for _, bk := range vm.Buckets {
		title := bk.Label
		switch {
		case bk.Overdue:
			title += " (" + l.String("overdue") + ")"
		case bk.Today:
			title += " (" + l.String("today") + ")"
		}
		fmt.Fprintf(&b, "\n## %s\n", title)
		list(bk.Items)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "#", `\#`, "~", `\~`)

// EscapeMarkdown makes s render as literal text.
func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
