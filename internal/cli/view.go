package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"todoblock/internal/client"
	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/publish"
	"todoblock/internal/view"
)

func newViewCmd(app *App) *cobra.Command {
	opts := &itemsOpts{}
	var noColor, markdown, raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the list for people instead of scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			loc, err := app.localizer()
			if err != nil {
				return writeErr(cmd, err)
			}
			t, closeFn, err := transport(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			vs := model.ViewState{CurrentGroup: model.GroupID(opts.showGroup), IncludeHidden: !opts.hideDone}
			vm, err := client.New(t, cfg.InstanceID, client.WithViewState(vs)).Refresh(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			out := cmd.OutOrStdout()
			switch {
			case raw:
				_, err = fmt.Fprint(out, publish.RenderMarkdown(vm, loc))
			case markdown:
				var s string
				s, err = renderViewMarkdown(vm, loc, width, noColor)
				if err == nil {
					_, err = fmt.Fprint(out, s)
				}
			default:
				if noColor {
					lipgloss.SetColorProfile(termenv.Ascii)
				} else {
					lipgloss.SetColorProfile(termenv.EnvColorProfile())
				}
				_, err = fmt.Fprint(out, viewText(vm, loc))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.showGroup, "show-group", 0, "Only show items of this group (0 = all)")
	cmd.Flags().BoolVar(&opts.hideDone, "hide-done", false, "Leave hidden completed items out")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Plain output")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render through a markdown renderer")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --markdown")
	return cmd
}

// viewText is the styled plain-text rendering of vm.
func viewText(vm view.ViewModel, loc *i18n.Localizer) string {
	heading := lipgloss.NewStyle().Bold(true)
	overdue := heading.Foreground(lipgloss.Color("1"))
	today := heading.Foreground(lipgloss.Color("4"))
	done := lipgloss.NewStyle().Strikethrough(true).Faint(true)

	var b strings.Builder
	b.WriteString(heading.Render(loc.String("pluginname")))
	b.WriteString("\n")
	if vm.Empty() {
		b.WriteString(loc.String("empty"))
		b.WriteString("\n")
		return b.String()
	}
	line := func(it model.Item) {
		box := "[ ]"
		text := it.Text
		if it.Done {
			box = "[x]"
			text = done.Render(text)
		}
		fmt.Fprintf(&b, "  %s %s", box, text)
		if it.GroupID != model.GroupNone {
			fmt.Fprintf(&b, " (%s)", loc.GroupLabel(it.GroupID))
		}
		fmt.Fprintf(&b, "  #%d\n", it.ID)
	}
	if len(vm.Pinned) > 0 {
		b.WriteString("\n" + heading.Render(loc.String("pinned")) + "\n")
		for _, it := range vm.Pinned {
			line(it)
		}
	}
	for _, bk := range vm.Buckets {
		h := heading.Render(bk.Label)
		switch {
		case bk.Overdue:
			h = overdue.Render(bk.Label + " · " + loc.String("overdue"))
		case bk.Today:
			h = today.Render(bk.Label + " · " + loc.String("today"))
		}
		b.WriteString("\n" + h + "\n")
		for _, it := range bk.Items {
			line(it)
		}
	}
	return b.String()
}

func renderViewMarkdown(vm view.ViewModel, loc *i18n.Localizer, width int, noColor bool) (string, error) {
	style := "dark"
	switch {
	case noColor:
		style = "notty"
	case !lipgloss.HasDarkBackground():
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return "", err
	}
	return r.Render(publish.RenderMarkdown(vm, loc))
}
