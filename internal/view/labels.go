package view

import (
	"fmt"
	"time"

	"todoblock/internal/model"
)

// DateLabelLayout renders a bucket date as short weekday, day, short month: "Mon, 4 Mar".
const DateLabelLayout = "Mon, 2 Jan"

// EnglishLabels is the fallback used when no localized labels are supplied.
type EnglishLabels struct{}

func (EnglishLabels) GeneralLabel() string { return "General" }

func (EnglishLabels) DateLabel(t time.Time) string { return t.Format(DateLabelLayout) }

func (EnglishLabels) GroupLabel(g model.GroupID) string {
	if g == model.GroupNone {
		return "Show all"
	}
	return fmt.Sprintf("Group %d", int(g))
}
