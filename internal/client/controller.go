// Package client is the list controller used by terminal front ends. It keeps
// the view state a browser page would hold, sends one operation per user
// action and only adopts server state after a successful response.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
	"todoblock/internal/view"
)

var (
	// ErrInFlight is returned when the same control is already waiting for a response.
	ErrInFlight = errors.New("client: control is busy")
	// ErrNotConfirmed is returned when a destructive action was not confirmed.
	ErrNotConfirmed = errors.New("client: not confirmed")
)

// Control identifies one UI control: an operation, and the item for per-item buttons.
type Control struct {
	Method string
	ID     int64
}

// Prompt describes a destructive action awaiting confirmation.
type Prompt struct {
	Method string
	ID     int64
	Text   string // item text for delete; empty for delete_completed
}

// ConfirmFunc asks the user to confirm p. A nil ConfirmFunc confirms nothing.
type ConfirmFunc func(ctx context.Context, p Prompt) bool

type Option func(*Controller)

func WithConfirm(fn ConfirmFunc) Option { return func(c *Controller) { c.confirm = fn } }

func WithViewState(vs model.ViewState) Option { return func(c *Controller) { c.state = vs } }

type Controller struct {
	transport  Transport
	instanceID int64
	confirm    ConfirmFunc

	mu      sync.Mutex
	state   model.ViewState
	view    view.ViewModel
	html    string
	lastErr error
	busy    map[Control]bool
}

func New(t Transport, instanceID int64, opts ...Option) *Controller {
	c := &Controller{
		transport:  t,
		instanceID: instanceID,
		state:      model.DefaultViewState(),
		busy:       map[Control]bool{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) InstanceID() int64 { return c.instanceID }

func (c *Controller) State() model.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View is the last view the server confirmed.
func (c *Controller) View() view.ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// HTML is the last list fragment received; empty for in-process transports.
func (c *Controller) HTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.html
}

// Err is the error indicator of the last operation; nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Busy reports whether ctl is waiting for a response.
func (c *Controller) Busy(ctl Control) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[ctl]
}

// Add creates an item. Blank text is rejected without a request.
func (c *Controller) Add(ctx context.Context, text string, due *int64, group model.GroupID) (view.ViewModel, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.fail(apperr.Validation("text", "must not be empty"))
	}
	return c.run(ctx, Control{Method: MethodAdd}, func(p *Params) {
		p.Text = text
		p.DueDate = due
		p.GroupID = int(group)
	})
}

// Edit replaces text, due date and group. A nil due clears the date.
func (c *Controller) Edit(ctx context.Context, id int64, text string, due *int64, group model.GroupID) (view.ViewModel, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.fail(apperr.Validation("text", "must not be empty"))
	}
	return c.run(ctx, Control{Method: MethodEdit, ID: id}, func(p *Params) {
		p.ID = id
		p.Text = text
		p.DueDate = due
		p.GroupID = int(group)
	})
}

// Toggle flips done. Completing an item while done items are hidden hides it.
func (c *Controller) Toggle(ctx context.Context, id int64) (view.ViewModel, error) {
	hide := !c.State().IncludeHidden
	return c.run(ctx, Control{Method: MethodToggle, ID: id}, func(p *Params) {
		p.ID = id
		p.Hide = hide
	})
}

func (c *Controller) Delete(ctx context.Context, id int64, text string) (view.ViewModel, error) {
	if !c.confirmed(ctx, Prompt{Method: MethodDelete, ID: id, Text: text}) {
		return c.View(), ErrNotConfirmed
	}
	return c.run(ctx, Control{Method: MethodDelete, ID: id}, func(p *Params) { p.ID = id })
}

func (c *Controller) DeleteCompleted(ctx context.Context) (view.ViewModel, error) {
	if !c.confirmed(ctx, Prompt{Method: MethodDeleteCompleted}) {
		return c.View(), ErrNotConfirmed
	}
	return c.run(ctx, Control{Method: MethodDeleteCompleted}, nil)
}

func (c *Controller) Pin(ctx context.Context, id int64) (view.ViewModel, error) {
	return c.run(ctx, Control{Method: MethodPin, ID: id}, func(p *Params) { p.ID = id })
}

func (c *Controller) SetHideDone(ctx context.Context, hide bool) (view.ViewModel, error) {
	return c.run(ctx, Control{Method: MethodHideDone}, func(p *Params) { p.Hide = hide })
}

func (c *Controller) SelectGroup(ctx context.Context, g model.GroupID) (view.ViewModel, error) {
	return c.run(ctx, Control{Method: MethodGroup}, func(p *Params) { p.GroupID = int(g) })
}

func (c *Controller) Refresh(ctx context.Context) (view.ViewModel, error) {
	return c.run(ctx, Control{Method: MethodRefresh}, nil)
}

func (c *Controller) confirmed(ctx context.Context, p Prompt) bool {
	return c.confirm != nil && c.confirm(ctx, p)
}

func (c *Controller) run(ctx context.Context, ctl Control, fill func(*Params)) (view.ViewModel, error) {
	c.mu.Lock()
	if c.busy[ctl] {
		c.mu.Unlock()
		return view.ViewModel{}, ErrInFlight
	}
	c.busy[ctl] = true
	p := Params{
		InstanceID:    c.instanceID,
		IncludeHidden: c.state.IncludeHidden,
		CurrentGroup:  int(c.state.CurrentGroup),
	}
	c.mu.Unlock()

	if fill != nil {
		fill(&p)
	}
	res, err := c.transport.Call(ctx, ctl.Method, p)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, ctl)
	if err != nil {
		c.lastErr = err
		return c.view, err
	}
	c.view = res.View
	c.html = res.HTML
	c.state = model.ViewState{CurrentGroup: res.View.CurrentGroup, IncludeHidden: res.View.IncludeHidden}
	c.lastErr = nil
	return c.view, nil
}

func (c *Controller) fail(err error) (view.ViewModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	return c.view, err
}
