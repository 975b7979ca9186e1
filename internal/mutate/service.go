// Package mutate implements the list operations. Every operation authorizes
// the caller, validates input, writes through the store and returns the
// freshly assembled view for the caller's view state.
package mutate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
	"todoblock/internal/perm"
	"todoblock/internal/view"
)

// ItemStore is the persistence the service needs. *store.Store satisfies it.
type ItemStore interface {
	Create(ctx context.Context, ownerID, text string, due *int64, group model.GroupID) (model.Item, error)
	Get(ctx context.Context, ownerID string, id int64) (model.Item, error)
	Update(ctx context.Context, ownerID string, id int64, patch model.Patch) (model.Item, error)
	Delete(ctx context.Context, ownerID string, id int64) error
	DeleteWhere(ctx context.Context, ownerID string, f model.Filter) (int64, error)
	UpdateWhere(ctx context.Context, ownerID string, f model.Filter, patch model.Patch) (int64, error)
	ListByOwner(ctx context.Context, ownerID string, group model.GroupID) ([]model.Item, error)
}

type Service struct {
	Store ItemStore
	Gate  perm.Gate

	// Labels localizes bucket and group labels; nil means English.
	Labels view.Labels
	// Location decides day boundaries; nil means time.Local.
	Location *time.Location
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

type AddInput struct {
	Text    string
	DueDate *int64
	GroupID int
	View    model.ViewState
}

// EditInput replaces text, due date and group. A nil DueDate clears it.
type EditInput struct {
	ID      int64
	Text    string
	DueDate *int64
	GroupID int
	View    model.ViewState
}

// ToggleInput flips done. Hide reports whether the hide-done view is active.
type ToggleInput struct {
	ID   int64
	Hide bool
	View model.ViewState
}

type ItemInput struct {
	ID   int64
	View model.ViewState
}

type HideDoneInput struct {
	Hide         bool
	CurrentGroup int
}

type GroupInput struct {
	GroupID       int
	IncludeHidden bool
}

func (s *Service) Add(ctx context.Context, actorID string, in AddInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(in.View); err != nil {
		return view.ViewModel{}, err
	}
	group, err := parseGroup("groupId", in.GroupID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return view.ViewModel{}, apperr.Validation("text", "must not be empty")
	}
	if _, err := s.Store.Create(ctx, owner, in.Text, in.DueDate, group); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, in.View)
}

func (s *Service) Edit(ctx context.Context, actorID string, in EditInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(in.View); err != nil {
		return view.ViewModel{}, err
	}
	group, err := parseGroup("groupId", in.GroupID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return view.ViewModel{}, apperr.Validation("text", "must not be empty")
	}
	if _, err := s.owned(ctx, owner, in.ID); err != nil {
		return view.ViewModel{}, err
	}

	patch := model.Patch{Text: model.Ptr(in.Text), GroupID: model.Ptr(group)}
	if in.DueDate != nil {
		patch.DueDate = in.DueDate
	} else {
		patch.ClearDueDate = true
	}
	if _, err := s.Store.Update(ctx, owner, in.ID, patch); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, in.View)
}

// ToggleDone flips done. Completing an item while the hide-done view is active
// hides it as well; reopening an item always unhides it.
func (s *Service) ToggleDone(ctx context.Context, actorID string, in ToggleInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(in.View); err != nil {
		return view.ViewModel{}, err
	}
	it, err := s.owned(ctx, owner, in.ID)
	if err != nil {
		return view.ViewModel{}, err
	}

	done := !it.Done
	patch := model.Patch{Done: model.Ptr(done)}
	switch {
	case done && in.Hide:
		patch.Hidden = model.Ptr(true)
	case !done:
		patch.Hidden = model.Ptr(false)
	}
	if _, err := s.Store.Update(ctx, owner, in.ID, patch); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, in.View)
}

func (s *Service) Delete(ctx context.Context, actorID string, in ItemInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(in.View); err != nil {
		return view.ViewModel{}, err
	}
	if _, err := s.owned(ctx, owner, in.ID); err != nil {
		return view.ViewModel{}, err
	}
	if err := s.Store.Delete(ctx, owner, in.ID); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, in.View)
}

// DeleteCompleted removes every done item. It is a no-op when none are done.
func (s *Service) DeleteCompleted(ctx context.Context, actorID string, vs model.ViewState) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(vs); err != nil {
		return view.ViewModel{}, err
	}
	if _, err := s.Store.DeleteWhere(ctx, owner, model.Filter{Done: model.Ptr(true)}); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, vs)
}

// Pin toggles pinned.
func (s *Service) Pin(ctx context.Context, actorID string, in ItemInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(in.View); err != nil {
		return view.ViewModel{}, err
	}
	it, err := s.owned(ctx, owner, in.ID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if _, err := s.Store.Update(ctx, owner, in.ID, model.Patch{Pinned: model.Ptr(!it.Pinned)}); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, in.View)
}

// HideDone hides every done item, or unhides everything. The returned view
// includes hidden items exactly when hide is false.
func (s *Service) HideDone(ctx context.Context, actorID string, in HideDoneInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	group, err := parseGroup("currentGroup", in.CurrentGroup)
	if err != nil {
		return view.ViewModel{}, err
	}

	if in.Hide {
		_, err = s.Store.UpdateWhere(ctx, owner, model.Filter{Done: model.Ptr(true)}, model.Patch{Hidden: model.Ptr(true)})
	} else {
		_, err = s.Store.UpdateWhere(ctx, owner, model.Filter{}, model.Patch{Hidden: model.Ptr(false)})
	}
	if err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, model.ViewState{CurrentGroup: group, IncludeHidden: !in.Hide})
}

// GroupFilter changes nothing; it re-renders with the new group filter.
func (s *Service) GroupFilter(ctx context.Context, actorID string, in GroupInput) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	group, err := parseGroup("groupId", in.GroupID)
	if err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, model.ViewState{CurrentGroup: group, IncludeHidden: in.IncludeHidden})
}

// Refresh re-renders the caller's list without changing anything.
func (s *Service) Refresh(ctx context.Context, actorID string, vs model.ViewState) (view.ViewModel, error) {
	owner, err := s.Gate.Authorize(ctx, actorID)
	if err != nil {
		return view.ViewModel{}, err
	}
	if err := validateView(vs); err != nil {
		return view.ViewModel{}, err
	}
	return s.render(ctx, owner, vs)
}

// owned loads the item and runs it through the ownership gate.
func (s *Service) owned(ctx context.Context, owner string, id int64) (model.Item, error) {
	if id <= 0 {
		return model.Item{}, apperr.Validation("id", "must be positive")
	}
	it, err := s.Store.Get(ctx, owner, id)
	if err != nil {
		return model.Item{}, err
	}
	if err := perm.RequireOwner(owner, it); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

func (s *Service) render(ctx context.Context, owner string, vs model.ViewState) (view.ViewModel, error) {
	items, err := s.Store.ListByOwner(ctx, owner, model.GroupNone)
	if err != nil {
		return view.ViewModel{}, fmt.Errorf("list items: %w", err)
	}
	return view.Assemble(items, s.viewOptions(vs)), nil
}

func (s *Service) viewOptions(vs model.ViewState) view.Options {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return view.Options{
		IncludeHidden: vs.IncludeHidden,
		CurrentGroup:  vs.CurrentGroup,
		Now:           now(),
		Location:      s.Location,
		Labels:        s.Labels,
	}
}

func parseGroup(field string, n int) (model.GroupID, error) {
	g, err := model.ParseGroupID(n)
	if err != nil {
		return model.GroupNone, apperr.Validation(field, err.Error())
	}
	return g, nil
}

func validateView(vs model.ViewState) error {
	if !vs.CurrentGroup.Valid() {
		return apperr.Validation("currentGroup", fmt.Sprintf("group id %d out of range", int(vs.CurrentGroup)))
	}
	return nil
}
