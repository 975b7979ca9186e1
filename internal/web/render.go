package web

import (
	"html/template"
	"time"

	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/view"
)

// listVM is the template data of the list region.
type listVM struct {
	L             *i18n.Localizer
	InstanceID    int64
	CurrentGroup  model.GroupID
	IncludeHidden bool
	HasHidden     bool
	Empty         bool
	Groups        []groupVM
	Pinned        []itemVM
	Buckets       []bucketVM
}

type groupVM struct {
	GroupID model.GroupID
	Label   string
	Icon    string
	Hidden  bool
	Active  bool
}

type bucketVM struct {
	Label   string
	Overdue bool
	Today   bool
	General bool
	Items   []itemVM
}

type itemVM struct {
	ID       int64
	Text     string
	HTML     template.HTML
	Done     bool
	Pinned   bool
	Hidden   bool
	GroupID  model.GroupID
	DueInput string // yyyy-mm-dd for the edit form
	DueLabel string
}

// itemCtx is the data of the "item" template.
type itemCtx struct {
	L    *i18n.Localizer
	Item itemVM
}

func (s *Server) buildList(vm view.ViewModel, loc *i18n.Localizer) listVM {
	tz := s.location()
	out := listVM{
		L:             loc,
		InstanceID:    s.cfg.InstanceID,
		CurrentGroup:  vm.CurrentGroup,
		IncludeHidden: vm.IncludeHidden,
		HasHidden:     vm.HasHiddenItems,
		Empty:         vm.Empty(),
	}
	for _, g := range vm.ActiveGroups {
		out.Groups = append(out.Groups, groupVM{
			GroupID: g.GroupID,
			Label:   g.Label,
			Icon:    g.Icon,
			Hidden:  g.HideOnLoad,
			Active:  g.GroupID != model.GroupNone && g.GroupID == vm.CurrentGroup,
		})
	}
	for _, it := range vm.Pinned {
		out.Pinned = append(out.Pinned, newItemVM(it, tz, loc))
	}
	for _, b := range vm.Buckets {
		bv := bucketVM{Label: b.Label, Overdue: b.Overdue, Today: b.Today, General: b.General()}
		for _, it := range b.Items {
			bv.Items = append(bv.Items, newItemVM(it, tz, loc))
		}
		out.Buckets = append(out.Buckets, bv)
	}
	return out
}

func newItemVM(it model.Item, tz *time.Location, labels view.Labels) itemVM {
	v := itemVM{
		ID:      it.ID,
		Text:    it.Text,
		HTML:    renderItemText(it.Text),
		Done:    it.Done,
		Pinned:  it.Pinned,
		Hidden:  it.Hidden,
		GroupID: it.GroupID,
	}
	if t, ok := it.DueTime(tz); ok {
		v.DueInput = t.Format("2006-01-02")
		v.DueLabel = labels.DateLabel(t)
	}
	return v
}
