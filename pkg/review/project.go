package review

import (
	"slices"
)

// Selection is the pair the grader currently has selected.
type Selection struct {
	TalentID     string `json:"talent_id,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
}

type (
	// AssignmentView buckets every assignment of the batch for one talent.
	// Buckets are ordered by due date, All by most recently assigned.
	AssignmentView struct {
		TalentID  string       `json:"talent_id"`
		Pending   []Assignment `json:"pending"`
		Unchecked []Assignment `json:"unchecked"`
		Completed []Assignment `json:"completed"`
		All       []Assignment `json:"all"`
		// Focus is the bucket holding the selected assignment.
		Focus Category `json:"focus,omitempty"`
	}

	// TalentView buckets the whole roster for one assignment, in roster order.
	TalentView struct {
		AssignmentID string   `json:"assignment_id"`
		Pending      []Talent `json:"pending"`
		Unchecked    []Talent `json:"unchecked"`
		Completed    []Talent `json:"completed"`
		// Focus is the bucket holding the selected talent.
		Focus Category `json:"focus,omitempty"`
	}
)

// Bucket returns the assignments of one category.
func (v AssignmentView) Bucket(c Category) []Assignment {
	switch c {
	case Pending:
		return v.Pending
	case Unchecked:
		return v.Unchecked
	case Completed:
		return v.Completed
	default:
		return nil
	}
}

// Bucket returns the talents of one category.
func (v TalentView) Bucket(c Category) []Talent {
	switch c {
	case Pending:
		return v.Pending
	case Unchecked:
		return v.Unchecked
	case Completed:
		return v.Completed
	default:
		return nil
	}
}

// ProjectByAssignment classifies every assignment's cell for sel.TalentID.
// A nil matrix or a talent outside the roster yields empty buckets.
func ProjectByAssignment(m *Matrix, sel Selection) AssignmentView {
	v := AssignmentView{
		TalentID:  sel.TalentID,
		Pending:   []Assignment{},
		Unchecked: []Assignment{},
		Completed: []Assignment{},
		All:       []Assignment{},
	}
	if _, ok := m.Talent(sel.TalentID); !ok {
		return v
	}

	for _, a := range m.assignments {
		cell, _ := m.Cell(a.ID, sel.TalentID)
		c := Classify(cell)
		switch c {
		case Pending:
			v.Pending = append(v.Pending, a)
		case Unchecked:
			v.Unchecked = append(v.Unchecked, a)
		case Completed:
			v.Completed = append(v.Completed, a)
		}
		if a.ID == sel.AssignmentID {
			v.Focus = c
		}
		v.All = append(v.All, a)
	}

	byDue := func(x, y Assignment) int { return x.DueDate.Compare(y.DueDate) }
	slices.SortStableFunc(v.Pending, byDue)
	slices.SortStableFunc(v.Unchecked, byDue)
	slices.SortStableFunc(v.Completed, byDue)
	slices.SortStableFunc(v.All, func(x, y Assignment) int {
		return y.AssignedDate.Compare(x.AssignedDate)
	})

	return v
}

// ProjectByTalent classifies every talent's cell for sel.AssignmentID.
// A nil matrix or an unknown assignment yields empty buckets.
func ProjectByTalent(m *Matrix, sel Selection) TalentView {
	v := TalentView{
		AssignmentID: sel.AssignmentID,
		Pending:      []Talent{},
		Unchecked:    []Talent{},
		Completed:    []Talent{},
	}
	if _, ok := m.Assignment(sel.AssignmentID); !ok {
		return v
	}

	for _, t := range m.talents {
		cell, _ := m.Cell(sel.AssignmentID, t.ID)
		c := Classify(cell)
		switch c {
		case Pending:
			v.Pending = append(v.Pending, t)
		case Unchecked:
			v.Unchecked = append(v.Unchecked, t)
		case Completed:
			v.Completed = append(v.Completed, t)
		}
		if t.ID == sel.TalentID {
			v.Focus = c
		}
	}

	return v
}
