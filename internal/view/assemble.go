// Package view projects a user's items into the grouped, sorted and filtered
// list the widget renders. Assemble is pure: it never touches storage.
package view

import (
	"sort"
	"time"

	"todoblock/internal/model"
)

// Labels supplies the human-readable strings of a view.
type Labels interface {
	GeneralLabel() string
	DateLabel(t time.Time) string
	GroupLabel(g model.GroupID) string
}

type Options struct {
	IncludeHidden bool
	CurrentGroup  model.GroupID

	// Now is the reference time for overdue/today. Zero means time.Now().
	Now time.Time
	// Location decides where "today" starts and ends. Nil means time.Local.
	Location *time.Location
	// Labels defaults to English labels when nil.
	Labels Labels
}

type ViewModel struct {
	Pinned         []model.Item  `json:"pinned"`
	Buckets        []Bucket      `json:"buckets"`
	ActiveGroups   []GroupButton `json:"activeGroups"`
	HasHiddenItems bool          `json:"hasHiddenItems"`

	CurrentGroup  model.GroupID `json:"currentGroup"`
	IncludeHidden bool          `json:"includeHidden"`
}

// Bucket holds the items sharing one due date. DueDate is nil for the general bucket.
type Bucket struct {
	DueDate *int64       `json:"dueDate,omitempty"`
	Overdue bool         `json:"overdue"`
	Today   bool         `json:"today"`
	Label   string       `json:"label"`
	Items   []model.Item `json:"items"`
}

func (b Bucket) General() bool { return b.DueDate == nil }

type GroupButton struct {
	GroupID    model.GroupID `json:"groupId"`
	Label      string        `json:"label"`
	Icon       string        `json:"icon"`
	HideOnLoad bool          `json:"hideOnLoad"`
}

const (
	groupIcon = "fa-star"
	resetIcon = "fa-times"
)

// Empty reports whether the view has nothing to show at all.
func (vm ViewModel) Empty() bool {
	return len(vm.Pinned) == 0 && len(vm.Buckets) == 0
}

// ItemCount counts every rendered item, pinned included.
func (vm ViewModel) ItemCount() int {
	n := len(vm.Pinned)
	for _, b := range vm.Buckets {
		n += len(b.Items)
	}
	return n
}

// Assemble builds the view for items (one owner's, in any order).
func Assemble(items []model.Item, opts Options) ViewModel {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	labels := opts.Labels
	if labels == nil {
		labels = EnglishLabels{}
	}

	vm := ViewModel{
		Pinned:        []model.Item{},
		Buckets:       []Bucket{},
		ActiveGroups:  []GroupButton{},
		CurrentGroup:  opts.CurrentGroup,
		IncludeHidden: opts.IncludeHidden,
	}

	filtered := make([]model.Item, 0, len(items))
	for _, it := range items {
		if opts.CurrentGroup != model.GroupNone && it.GroupID != opts.CurrentGroup {
			continue
		}
		filtered = append(filtered, it)
		if it.Hidden {
			vm.HasHiddenItems = true
		}
	}

	var rest []model.Item
	for _, it := range filtered {
		if it.Pinned {
			vm.Pinned = append(vm.Pinned, it)
			continue
		}
		if it.Hidden && !opts.IncludeHidden {
			continue
		}
		rest = append(rest, it)
	}
	sort.SliceStable(vm.Pinned, func(i, j int) bool { return lessPinned(vm.Pinned[i], vm.Pinned[j]) })
	sort.SliceStable(rest, func(i, j int) bool { return lessCanonical(rest[i], rest[j]) })

	vm.Buckets = bucketize(rest, now, loc, labels)
	vm.ActiveGroups = activeGroups(filtered, opts.IncludeHidden, opts.CurrentGroup, labels)
	return vm
}

func bucketize(sorted []model.Item, now time.Time, loc *time.Location, labels Labels) []Bucket {
	out := []Bucket{}
	overdueCutoff := now.Add(-24 * time.Hour).Unix()
	y, m, d := now.In(loc).Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, loc)
	endOfToday := startOfToday.AddDate(0, 0, 1).Add(-time.Second)

	for _, it := range sorted {
		if n := len(out); n > 0 && sameDue(out[n-1].DueDate, it.DueDate) {
			out[n-1].Items = append(out[n-1].Items, it)
			continue
		}
		b := Bucket{Items: []model.Item{it}}
		if t, ok := it.DueTime(loc); ok {
			due := *it.DueDate
			b.DueDate = &due
			b.Overdue = due <= overdueCutoff
			b.Today = !t.Before(startOfToday) && !t.After(endOfToday)
			b.Label = labels.DateLabel(t)
		} else {
			b.Label = labels.GeneralLabel()
		}
		out = append(out, b)
	}
	return out
}

// activeGroups lists the distinct non-zero groups among visible items in
// ascending order, followed by a reset entry when any exist.
func activeGroups(items []model.Item, includeHidden bool, current model.GroupID, labels Labels) []GroupButton {
	seen := map[model.GroupID]bool{}
	for _, it := range items {
		if it.GroupID == model.GroupNone {
			continue
		}
		if it.Hidden && !includeHidden {
			continue
		}
		seen[it.GroupID] = true
	}
	out := []GroupButton{}
	for _, g := range model.AllGroups() {
		if !seen[g] {
			continue
		}
		out = append(out, GroupButton{GroupID: g, Label: labels.GroupLabel(g), Icon: groupIcon})
	}
	if len(out) > 0 {
		out = append(out, GroupButton{
			GroupID:    model.GroupNone,
			Label:      labels.GroupLabel(model.GroupNone),
			Icon:       resetIcon,
			HideOnLoad: current == model.GroupNone,
		})
	}
	return out
}

// lessCanonical orders by (dueDate, groupId, createdAt) ascending with undated items last.
func lessCanonical(a, b model.Item) bool {
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c < 0
	}
	if a.GroupID != b.GroupID {
		return a.GroupID < b.GroupID
	}
	return lessCreated(a, b)
}

// lessPinned orders by (dueDate, createdAt) ascending with undated items last.
func lessPinned(a, b model.Item) bool {
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c < 0
	}
	return lessCreated(a, b)
}

func lessCreated(a, b model.Item) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func compareDue(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func sameDue(a, b *int64) bool {
	return compareDue(a, b) == 0
}
