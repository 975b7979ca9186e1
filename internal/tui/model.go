package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todoblock/internal/apperr"
	"todoblock/internal/client"
	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/view"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirm
)

const (
	fieldText = iota
	fieldDue
	fieldGroup
	fieldCount
)

const dueLayout = "2006-01-02"

// row is one line of the list: a bucket heading or an item.
type row struct {
	heading string
	overdue bool
	today   bool
	item    *model.Item
}

// opDoneMsg carries the result of one controller call.
type opDoneMsg struct {
	method string
	vm     view.ViewModel
	err    error

	keepErr bool // re-sync after a failure; the failure stays on screen
}

type listModel struct {
	ctrl *client.Controller
	loc  *i18n.Localizer
	tz   *time.Location

	keys keyMap
	help help.Model

	vm     view.ViewModel
	rows   []row
	cursor int // index into rows; always an item row when any exist

	mode    mode
	editID  int64 // 0 while adding
	fields  [fieldCount]textinput.Model
	focus   int
	confirm client.Prompt

	errMsg string

	width  int
	height int
}

func newListModel(ctrl *client.Controller, loc *i18n.Localizer, tz *time.Location) listModel {
	if tz == nil {
		tz = time.Local
	}
	m := listModel{
		ctrl:   ctrl,
		loc:    loc,
		tz:     tz,
		keys:   newKeyMap(loc),
		help:   help.New(),
		width:  80,
		height: 24,
	}
	for i := range m.fields {
		ti := textinput.New()
		ti.Prompt = ""
		m.fields[i] = ti
	}
	m.fields[fieldText].Placeholder = loc.String("placeholder")
	m.fields[fieldText].CharLimit = 1333
	m.fields[fieldDue].Placeholder = "YYYY-MM-DD"
	m.fields[fieldDue].CharLimit = len(dueLayout)
	m.fields[fieldGroup].Placeholder = "0-5"
	m.fields[fieldGroup].CharLimit = 1
	return m
}

func (m listModel) Init() tea.Cmd {
	return m.do(client.MethodRefresh, m.ctrl.Refresh)
}

func (m listModel) do(method string, fn func(context.Context) (view.ViewModel, error)) tea.Cmd {
	return func() tea.Msg {
		vm, err := fn(context.Background())
		return opDoneMsg{method: method, vm: vm, err: err}
	}
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case opDoneMsg:
		return m.applyResult(msg)
	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m listModel) applyResult(msg opDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		if !msg.keepErr {
			m.errMsg = ""
		}
		m.setView(msg.vm)
		return m, nil
	case errors.Is(msg.err, client.ErrInFlight), errors.Is(msg.err, client.ErrNotConfirmed):
		return m, nil
	}
	m.errMsg = m.loc.ErrorMessage(msg.err)
	if errors.Is(msg.err, apperr.ErrNotFound) && msg.method != client.MethodRefresh {
		// The item is gone; show what the server has now.
		return m, func() tea.Msg {
			vm, err := m.ctrl.Refresh(context.Background())
			return opDoneMsg{method: client.MethodRefresh, vm: vm, err: err, keepErr: true}
		}
	}
	return m, nil
}

func (m *listModel) setView(vm view.ViewModel) {
	var selected int64
	if it := m.selected(); it != nil {
		selected = it.ID
	}
	m.vm = vm
	m.rows = flatten(vm, m.loc)
	m.cursor = -1
	for i, r := range m.rows {
		if r.item == nil {
			continue
		}
		if m.cursor < 0 || r.item.ID == selected {
			m.cursor = i
		}
		if r.item.ID == selected {
			break
		}
	}
}

// flatten lays the view out top to bottom: pinned items, then each bucket.
func flatten(vm view.ViewModel, loc *i18n.Localizer) []row {
	var rows []row
	if len(vm.Pinned) > 0 {
		rows = append(rows, row{heading: loc.String("pinned")})
		for i := range vm.Pinned {
			rows = append(rows, row{item: &vm.Pinned[i]})
		}
	}
	for _, b := range vm.Buckets {
		rows = append(rows, row{heading: b.Label, overdue: b.Overdue, today: b.Today})
		for i := range b.Items {
			rows = append(rows, row{item: &b.Items[i]})
		}
	}
	return rows
}

func (m listModel) selected() *model.Item {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].item
}

func (m *listModel) move(delta int) {
	for i := m.cursor + delta; i >= 0 && i < len(m.rows); i += delta {
		if m.rows[i].item != nil {
			m.cursor = i
			return
		}
	}
}

func (m listModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it := m.selected()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.do(client.MethodRefresh, m.ctrl.Refresh)
	case key.Matches(msg, m.keys.Add):
		return m.openForm(nil)
	case key.Matches(msg, m.keys.Edit) && it != nil:
		return m.openForm(it)
	case key.Matches(msg, m.keys.Toggle) && it != nil:
		id := it.ID
		return m, m.do(client.MethodToggle, func(ctx context.Context) (view.ViewModel, error) {
			return m.ctrl.Toggle(ctx, id)
		})
	case key.Matches(msg, m.keys.Pin) && it != nil:
		id := it.ID
		return m, m.do(client.MethodPin, func(ctx context.Context) (view.ViewModel, error) {
			return m.ctrl.Pin(ctx, id)
		})
	case key.Matches(msg, m.keys.Delete) && it != nil:
		m.mode = modeConfirm
		m.confirm = client.Prompt{Method: client.MethodDelete, ID: it.ID, Text: it.Text}
	case key.Matches(msg, m.keys.DeleteCompleted):
		m.mode = modeConfirm
		m.confirm = client.Prompt{Method: client.MethodDeleteCompleted}
	case key.Matches(msg, m.keys.HideDone):
		hide := m.ctrl.State().IncludeHidden
		return m, m.do(client.MethodHideDone, func(ctx context.Context) (view.ViewModel, error) {
			return m.ctrl.SetHideDone(ctx, hide)
		})
	case key.Matches(msg, m.keys.Group):
		g, _ := strconv.Atoi(msg.String())
		return m, m.do(client.MethodGroup, func(ctx context.Context) (view.ViewModel, error) {
			return m.ctrl.SelectGroup(ctx, model.GroupID(g))
		})
	}
	return m, nil
}

func (m listModel) openForm(it *model.Item) (tea.Model, tea.Cmd) {
	m.mode = modeForm
	m.errMsg = ""
	m.editID = 0
	for i := range m.fields {
		m.fields[i].SetValue("")
		m.fields[i].Blur()
	}
	if it != nil {
		m.editID = it.ID
		m.fields[fieldText].SetValue(it.Text)
		if t, ok := it.DueTime(m.tz); ok {
			m.fields[fieldDue].SetValue(t.Format(dueLayout))
		}
		if it.GroupID != model.GroupNone {
			m.fields[fieldGroup].SetValue(strconv.Itoa(int(it.GroupID)))
		}
	}
	m.focus = fieldText
	return m, m.fields[fieldText].Focus()
}

func (m listModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.mode = modeList
		return m, nil
	case "tab", "shift+tab":
		m.fields[m.focus].Blur()
		if msg.String() == "tab" {
			m.focus = (m.focus + 1) % fieldCount
		} else {
			m.focus = (m.focus + fieldCount - 1) % fieldCount
		}
		return m, m.fields[m.focus].Focus()
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m listModel) submitForm() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.fields[fieldText].Value())
	if text == "" {
		m.fields[fieldText].Placeholder = m.loc.String("placeholdermore")
		return m, nil
	}
	due, err := parseDue(m.fields[fieldDue].Value(), m.tz)
	if err != nil {
		m.errMsg = m.loc.ErrorMessage(err)
		return m, nil
	}
	group, err := parseGroup(m.fields[fieldGroup].Value())
	if err != nil {
		m.errMsg = m.loc.ErrorMessage(err)
		return m, nil
	}

	m.mode = modeList
	m.fields[fieldText].Placeholder = m.loc.String("placeholder")
	if id := m.editID; id != 0 {
		return m, m.do(client.MethodEdit, func(ctx context.Context) (view.ViewModel, error) {
			return m.ctrl.Edit(ctx, id, text, due, group)
		})
	}
	return m, m.do(client.MethodAdd, func(ctx context.Context) (view.ViewModel, error) {
		return m.ctrl.Add(ctx, text, due, group)
	})
}

func (m listModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.mode = modeList
		p := m.confirm
		ctx := withConfirmed(context.Background(), p)
		if p.Method == client.MethodDeleteCompleted {
			return m, func() tea.Msg {
				vm, err := m.ctrl.DeleteCompleted(ctx)
				return opDoneMsg{method: p.Method, vm: vm, err: err}
			}
		}
		return m, func() tea.Msg {
			vm, err := m.ctrl.Delete(ctx, p.ID, p.Text)
			return opDoneMsg{method: p.Method, vm: vm, err: err}
		}
	case "n", "esc", "ctrl+g", "q":
		m.mode = modeList
	}
	return m, nil
}

// parseDue reads a yyyy-mm-dd date as midnight in tz. Blank means no due date.
func parseDue(s string, tz *time.Location) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dueLayout, s, tz)
	if err != nil {
		return nil, apperr.Validation("dueDate", "expected YYYY-MM-DD")
	}
	return model.Ptr(t.Unix()), nil
}

func parseGroup(s string) (model.GroupID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.GroupNone, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return model.GroupNone, apperr.Validation("groupId", "not a number")
	}
	g, err := model.ParseGroupID(n)
	if err != nil {
		return model.GroupNone, apperr.Validation("groupId", err.Error())
	}
	return g, nil
}

type confirmedKey struct{}

func withConfirmed(ctx context.Context, p client.Prompt) context.Context {
	return context.WithValue(ctx, confirmedKey{}, p)
}

// ModalConfirm accepts exactly the prompt the user confirmed in the TUI modal.
func ModalConfirm(ctx context.Context, p client.Prompt) bool {
	got, ok := ctx.Value(confirmedKey{}).(client.Prompt)
	return ok && got == p
}
