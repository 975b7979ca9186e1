package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todoblock/internal/apperr"
	"todoblock/internal/client"
	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/view"
)

type itemsOpts struct {
	showGroup int
	hideDone  bool
	yes       bool
}

func newItemsCmd(app *App) *cobra.Command {
	opts := &itemsOpts{}
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Read and change the list",
		Long: strings.TrimSpace(`
Every command prints the resulting view: pinned items, then one bucket per due
date (earliest first) and the general bucket last.

--show-group and --hide-done set the view state the command runs with, the
same state the web widget keeps between requests.
`),
	}
	cmd.PersistentFlags().IntVar(&opts.showGroup, "show-group", 0, "Only show items of this group (0 = all)")
	cmd.PersistentFlags().BoolVar(&opts.hideDone, "hide-done", false, "Leave hidden completed items out")

	cmd.AddCommand(newItemsListCmd(app, opts))
	cmd.AddCommand(newItemsAddCmd(app, opts))
	cmd.AddCommand(newItemsEditCmd(app, opts))
	cmd.AddCommand(newItemsToggleCmd(app, opts))
	cmd.AddCommand(newItemsDeleteCmd(app, opts))
	cmd.AddCommand(newItemsPinCmd(app, opts))
	cmd.AddCommand(newItemsClearDoneCmd(app, opts))
	cmd.AddCommand(newItemsHideDoneCmd(app, opts))
	cmd.AddCommand(newItemsGroupCmd(app, opts))
	return cmd
}

// withController runs fn against a controller in the requested view state and
// prints the view it returns.
func withController(cmd *cobra.Command, app *App, opts *itemsOpts, fn func(ctx context.Context, c *client.Controller) (view.ViewModel, error)) error {
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
	c := client.New(t, cfg.InstanceID,
		client.WithViewState(vs),
		client.WithConfirm(stdinConfirm(cmd, loc, opts.yes)),
	)
	vm, err := fn(cmd.Context(), c)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, map[string]any{"data": vm})
}

func newItemsListCmd(app *App, opts *itemsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				return c.Refresh(ctx)
			})
		},
	}
}

func newItemsAddCmd(app *App, opts *itemsOpts) *cobra.Command {
	var due string
	var group int
	cmd := &cobra.Command{
		Use:     "add <text>",
		Short:   "Add an item",
		Args:    cobra.MinimumNArgs(1),
		Example: `todoblock items add "Buy milk" --due 2024-03-14 --group 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				d, err := parseDueFlag(app, due)
				if err != nil {
					return view.ViewModel{}, err
				}
				return c.Add(ctx, strings.Join(args, " "), d, model.GroupID(group))
			})
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&group, "group", 0, "Group 0-5")
	return cmd
}

func newItemsEditCmd(app *App, opts *itemsOpts) *cobra.Command {
	var due string
	var group int
	cmd := &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Replace an item's text, due date and group",
		Long:  "Replace an item's text, due date and group. Leaving --due out clears the due date.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				id, err := parseID(args[0])
				if err != nil {
					return view.ViewModel{}, err
				}
				d, err := parseDueFlag(app, due)
				if err != nil {
					return view.ViewModel{}, err
				}
				return c.Edit(ctx, id, strings.Join(args[1:], " "), d, model.GroupID(group))
			})
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&group, "group", 0, "Group 0-5")
	return cmd
}

func newItemsToggleCmd(app *App, opts *itemsOpts) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Mark an item done or not done",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				id, err := parseID(args[0])
				if err != nil {
					return view.ViewModel{}, err
				}
				return c.Toggle(ctx, id)
			})
		},
	}
}

func newItemsDeleteCmd(app *App, opts *itemsOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item (asks first unless --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				id, err := parseID(args[0])
				if err != nil {
					return view.ViewModel{}, err
				}
				text := "#" + args[0]
				if vm, err := c.Refresh(ctx); err == nil {
					if it, ok := findItem(vm, id); ok {
						text = it.Text
					}
				}
				return c.Delete(ctx, id, text)
			})
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newItemsPinCmd(app *App, opts *itemsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				id, err := parseID(args[0])
				if err != nil {
					return view.ViewModel{}, err
				}
				return c.Pin(ctx, id)
			})
		},
	}
}

func newItemsClearDoneCmd(app *App, opts *itemsOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-done",
		Short: "Delete every completed item (asks first unless --yes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				return c.DeleteCompleted(ctx)
			})
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newItemsHideDoneCmd(app *App, opts *itemsOpts) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "hide-done",
		Short: "Hide completed items (or show them again with --show)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				return c.SetHideDone(ctx, !show)
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Unhide every item instead")
	return cmd
}

func newItemsGroupCmd(app *App, opts *itemsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "group <0-5>",
		Short: "Show one group (0 shows all)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, app, opts, func(ctx context.Context, c *client.Controller) (view.ViewModel, error) {
				n, err := strconv.Atoi(strings.TrimSpace(args[0]))
				if err != nil {
					return view.ViewModel{}, apperr.Validation("groupId", "not a number")
				}
				return c.SelectGroup(ctx, model.GroupID(n))
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(s, "#")), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("id", fmt.Sprintf("%q is not an item id", s))
	}
	return id, nil
}

// parseDueFlag reads YYYY-MM-DD as midnight in the configured timezone.
func parseDueFlag(app *App, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	tz, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	t, err := time.ParseInLocation("2006-01-02", s, tz)
	if err != nil {
		return nil, apperr.Validation("dueDate", "expected YYYY-MM-DD")
	}
	return model.Ptr(t.Unix()), nil
}

func findItem(vm view.ViewModel, id int64) (model.Item, bool) {
	for _, it := range vm.Pinned {
		if it.ID == id {
			return it, true
		}
	}
	for _, b := range vm.Buckets {
		for _, it := range b.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return model.Item{}, false
}

// stdinConfirm asks on stderr and reads the answer from stdin. yes skips the question.
func stdinConfirm(cmd *cobra.Command, loc *i18n.Localizer, yes bool) client.ConfirmFunc {
	return func(_ context.Context, p client.Prompt) bool {
		if yes {
			return true
		}
		q := loc.String("deletecompleted") + "?"
		if p.Method == client.MethodDelete {
			q = loc.Sprintf("confirmdelete", p.Text)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", q)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
