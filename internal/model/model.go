package model

import (
	"fmt"
	"time"
)

// GroupID tags an item with one of a small closed set of user groups.
// GroupNone (0) means "no group"; as a view filter it means "all groups".
type GroupID int

const (
	GroupNone GroupID = 0
	GroupMax  GroupID = 5
)

func (g GroupID) Valid() bool {
	return g >= GroupNone && g <= GroupMax
}

// ParseGroupID validates a raw group value coming from a client.
func ParseGroupID(n int) (GroupID, error) {
	g := GroupID(n)
	if !g.Valid() {
		return GroupNone, fmt.Errorf("group id %d out of range 0..%d", n, GroupMax)
	}
	return g, nil
}

// AllGroups lists every non-zero group in ascending order.
func AllGroups() []GroupID {
	out := make([]GroupID, 0, int(GroupMax))
	for g := GroupNone + 1; g <= GroupMax; g++ {
		out = append(out, g)
	}
	return out
}

type Item struct {
	ID      int64  `json:"id"`
	OwnerID string `json:"ownerId"`
	Text    string `json:"text"`

	// DueDate is seconds since the Unix epoch. Nil puts the item in the general bucket.
	DueDate *int64  `json:"dueDate,omitempty"`
	GroupID GroupID `json:"groupId"`

	Done   bool `json:"done"`
	Pinned bool `json:"pinned"`
	Hidden bool `json:"hidden"`

	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func (it Item) HasDueDate() bool { return it.DueDate != nil }

// DueTime returns the due date as a time in loc. ok is false for items without a due date.
func (it Item) DueTime(loc *time.Location) (t time.Time, ok bool) {
	if it.DueDate == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(*it.DueDate, 0).In(loc), true
}

// Patch is a partial update. Nil fields are left untouched.
// ClearDueDate takes precedence over DueDate.
type Patch struct {
	Text         *string
	DueDate      *int64
	ClearDueDate bool
	GroupID      *GroupID
	Done         *bool
	Pinned       *bool
	Hidden       *bool
}

func (p Patch) Empty() bool {
	return p.Text == nil && p.DueDate == nil && !p.ClearDueDate && p.GroupID == nil &&
		p.Done == nil && p.Pinned == nil && p.Hidden == nil
}

// Apply returns a copy of it with the patch applied.
func (p Patch) Apply(it Item) Item {
	if p.Text != nil {
		it.Text = *p.Text
	}
	if p.ClearDueDate {
		it.DueDate = nil
	} else if p.DueDate != nil {
		v := *p.DueDate
		it.DueDate = &v
	}
	if p.GroupID != nil {
		it.GroupID = *p.GroupID
	}
	if p.Done != nil {
		it.Done = *p.Done
	}
	if p.Pinned != nil {
		it.Pinned = *p.Pinned
	}
	if p.Hidden != nil {
		it.Hidden = *p.Hidden
	}
	return it
}

// Filter selects a subset of one owner's items for bulk operations.
type Filter struct {
	Done *bool
}

// ViewState is held by the client and round-tripped on every request.
type ViewState struct {
	CurrentGroup  GroupID `json:"currentGroup"`
	IncludeHidden bool    `json:"includeHidden"`
}

// DefaultViewState is what a freshly loaded page starts with.
func DefaultViewState() ViewState {
	return ViewState{CurrentGroup: GroupNone, IncludeHidden: true}
}

func Ptr[T any](v T) *T { return &v }
