package review

import (
	"log/slog"
)

// Category is the grading-queue state of one (talent, assignment) pair.
type Category string

const (
	Pending   Category = "pending"
	Unchecked Category = "unchecked"
	Completed Category = "completed"
)

// Categories lists every category in display order.
var Categories = []Category{Pending, Unchecked, Completed}

func (c Category) String() string {
	return string(c)
}

// Classify assigns the category of a cell. A checked but rejected submission
// re-enters Pending, the same as a talent who never submitted.
func Classify(cell Cell) Category {
	if !cell.Present() {
		return Pending
	}
	s := cell.Submission
	switch {
	case s.IsChecked && !s.IsAccepted:
		return Pending
	case !s.IsChecked:
		return Unchecked
	case s.IsAccepted:
		return Completed
	}

	slog.Default().Warn("Unclassifiable submission, treating as pending",
		slog.String("submission_id", s.ID),
		slog.Bool("is_checked", s.IsChecked),
		slog.Bool("is_accepted", s.IsAccepted),
	)
	return Pending
}
