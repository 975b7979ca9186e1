package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	ItemID  int64            `json:"itemId,omitempty"`
	OwnerID string           `json:"ownerId,omitempty"`
}

type DoctorReport struct {
	Items  int           `json:"items"`
	Owners int           `json:"owners"`
	Issues []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

var ErrDoctorIssuesFound = errors.New("doctor: issues found")

// Doctor checks the database file and the rows the service layer relies on.
// It never modifies anything.
func (s *Store) Doctor(ctx context.Context) (DoctorReport, error) {
	var rep DoctorReport
	var issues []DoctorIssue

	rows, err := s.db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return DoctorReport{}, fmt.Errorf("integrity check: %w", err)
	}
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			_ = rows.Close()
			return DoctorReport{}, err
		}
		if msg != "ok" {
			issues = append(issues, DoctorIssue{Level: DoctorIssueLevelError, Code: "integrity", Message: msg})
		}
	}
	if err := rows.Close(); err != nil {
		return DoctorReport{}, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT owner_id) FROM todo_items`,
	).Scan(&rep.Items, &rep.Owners); err != nil {
		return DoctorReport{}, err
	}

	checks := []struct {
		level DoctorIssueLevel
		code  string
		msg   string
		where string
	}{
		{DoctorIssueLevelError, "empty_text", "item text is empty", `trim(text) = ''`},
		{DoctorIssueLevelError, "empty_owner", "item has no owner", `trim(owner_id) = ''`},
		{DoctorIssueLevelWarn, "zero_due_date", "due date stored as 0 instead of NULL", `due_date IS NOT NULL AND due_date <= 0`},
		{DoctorIssueLevelWarn, "hidden_not_done", "item is hidden but not done", `hidden = 1 AND done = 0`},
	}
	for _, c := range checks {
		found, err := s.doctorQuery(ctx, c.where)
		if err != nil {
			return DoctorReport{}, fmt.Errorf("check %s: %w", c.code, err)
		}
		for _, f := range found {
			issues = append(issues, DoctorIssue{Level: c.level, Code: c.code, Message: c.msg, ItemID: f.id, OwnerID: f.owner})
		}
	}

	rep.Issues = issues
	if rep.Issues == nil {
		rep.Issues = []DoctorIssue{}
	}
	return rep, nil
}

type doctorRow struct {
	id    int64
	owner string
}

func (s *Store) doctorQuery(ctx context.Context, where string) ([]doctorRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner_id FROM todo_items WHERE `+where+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []doctorRow
	for rows.Next() {
		var r doctorRow
		if err := rows.Scan(&r.id, &r.owner); err != nil {
			return nil, err
		}
		r.owner = strings.TrimSpace(r.owner)
		out = append(out, r)
	}
	return out, rows.Err()
}
