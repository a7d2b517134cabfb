// Package report renders review views as terminal tables.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jh125486/batchreview/pkg/review"
)

const (
	dateLayout = "2006-01-02"
	none       = "-"
)

func newTable(w io.Writer, align ...tw.Align) *tablewriter.Table {
	if w == nil {
		w = os.Stdout
	}
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{PerColumn: align},
		},
	}))
}

// marker flags the selected row.
func marker(selected bool) string {
	if selected {
		return ">"
	}
	return ""
}

func score(s *float64) string {
	if s == nil {
		return none
	}
	return strconv.FormatFloat(*s, 'f', 2, 64)
}

// status describes the cell's latest submission, or "-" without one.
func status(m *review.Matrix, assignmentID, talentID string) (submitted, grade string) {
	cell, ok := m.Cell(assignmentID, talentID)
	if !ok || !cell.Present() {
		return none, none
	}
	s := cell.Submission
	switch {
	case !s.IsChecked:
		grade = "awaiting review"
	case s.IsAccepted:
		grade = "accepted " + score(s.Score)
	default:
		grade = "rejected " + score(s.Score)
	}
	return s.SubmittedOn.Format(dateLayout), grade
}

// Assignments renders a talent's assignments bucket by bucket. m supplies
// submission details and may be nil.
func Assignments(w io.Writer, v review.AssignmentView, m *review.Matrix, selected string) {
	table := newTable(w, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft)
	table.Header("", "Bucket", "Assignment", "Title", "Due", "Submitted", "Grade")
	for _, c := range review.Categories {
		for _, a := range v.Bucket(c) {
			submitted, grade := status(m, a.ID, v.TalentID)
			_ = table.Append(marker(a.ID == selected), c.String(), a.ID, a.Title, a.DueDate.Format(dateLayout), submitted, grade)
		}
	}
	table.Footer("", "Talent:", v.TalentID, "", "", "Total:", strconv.Itoa(len(v.All)))
	_ = table.Render()
}

// Talents renders an assignment's roster bucket by bucket. m supplies
// submission details and may be nil.
func Talents(w io.Writer, v review.TalentView, m *review.Matrix, selected string) {
	table := newTable(w, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft)
	table.Header("", "Bucket", "Talent", "Name", "Submitted", "Grade")
	total := 0
	for _, c := range review.Categories {
		for _, t := range v.Bucket(c) {
			submitted, grade := status(m, v.AssignmentID, t.ID)
			_ = table.Append(marker(t.ID == selected), c.String(), t.ID, t.Name(), submitted, grade)
			total++
		}
	}
	table.Footer("", "Assignment:", v.AssignmentID, "", "Total:", strconv.Itoa(total))
	_ = table.Render()
}

// History renders every attempt of a talent at an assignment.
func History(w io.Writer, history []review.Submission) {
	table := newTable(w, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft)
	table.Header("", "Submission", "Submitted", "Checked", "Score", "Remarks")
	for _, s := range history {
		latest := ""
		if s.IsLatest {
			latest = "latest"
		}
		_ = table.Append(latest, s.ID, s.SubmittedOn.Format(dateLayout), strconv.FormatBool(s.IsChecked), score(s.Score), s.FacultyRemarks)
	}
	_ = table.Render()
}

// Breakdown renders a drafted score.
func Breakdown(w io.Writer, b review.ScoreBreakdown) {
	table := newTable(w, tw.AlignLeft, tw.AlignRight)
	table.Header("Step", "Value")
	_ = table.Append("Scored", fmt.Sprintf("%.2f / %.2f", b.Scored, b.OutOf))
	_ = table.Append("Late", strconv.FormatBool(b.Late))
	_ = table.Append("Penalty", fmt.Sprintf("%d%%", b.PenaltyPercent))
	_ = table.Append("Valid", strconv.FormatBool(b.Valid))
	table.Footer("Score:", fmt.Sprintf("%.2f", b.Score))
	_ = table.Render()
}
