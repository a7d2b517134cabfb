package review

// CellKey identifies one (assignment, talent) pair of the matrix.
type CellKey struct {
	AssignmentID string
	TalentID     string
}

// Cell is what a matrix lookup yields for a pair: either a submission or
// Absent when the talent never submitted.
type Cell struct {
	Submission *Submission
}

// Absent is the cell of a talent that never submitted.
var Absent = Cell{}

// Present reports whether the talent submitted.
func (c Cell) Present() bool {
	return c.Submission != nil
}

// Matrix is the (assignment × talent) submission table of one batch. It is
// immutable once built; a refresh builds a new one.
type Matrix struct {
	assignments []Assignment
	talents     []Talent
	assignIdx   map[string]int
	talentIdx   map[string]int
	cells       map[CellKey]Cell
}

// Build indexes every assignment's submissions by talent and fills one cell
// per (assignment, talent) pair. Duplicate assignment or talent IDs keep their
// first occurrence, as does a talent with several submissions.
func Build(assignments []Assignment, talents []Talent) *Matrix {
	m := &Matrix{
		assignments: make([]Assignment, 0, len(assignments)),
		talents:     make([]Talent, 0, len(talents)),
		assignIdx:   make(map[string]int, len(assignments)),
		talentIdx:   make(map[string]int, len(talents)),
	}
	for _, t := range talents {
		if _, dup := m.talentIdx[t.ID]; dup {
			continue
		}
		m.talentIdx[t.ID] = len(m.talents)
		m.talents = append(m.talents, t)
	}
	for _, a := range assignments {
		if _, dup := m.assignIdx[a.ID]; dup {
			continue
		}
		a.Submissions = append([]Submission(nil), a.Submissions...)
		m.assignIdx[a.ID] = len(m.assignments)
		m.assignments = append(m.assignments, a)
	}

	m.cells = make(map[CellKey]Cell, len(m.assignments)*len(m.talents))
	for ai := range m.assignments {
		a := &m.assignments[ai]
		byTalent := make(map[string]*Submission, len(a.Submissions))
		for si := range a.Submissions {
			s := &a.Submissions[si]
			if _, seen := byTalent[s.TalentID]; !seen {
				byTalent[s.TalentID] = s
			}
		}
		for _, t := range m.talents {
			m.cells[CellKey{AssignmentID: a.ID, TalentID: t.ID}] = Cell{Submission: byTalent[t.ID]}
		}
	}

	return m
}

// Cell returns the cell of a pair and whether the pair exists in the matrix.
func (m *Matrix) Cell(assignmentID, talentID string) (Cell, bool) {
	if m == nil {
		return Absent, false
	}
	c, ok := m.cells[CellKey{AssignmentID: assignmentID, TalentID: talentID}]
	return c, ok
}

// Assignment looks up an assignment by ID.
func (m *Matrix) Assignment(id string) (Assignment, bool) {
	if m == nil {
		return Assignment{}, false
	}
	i, ok := m.assignIdx[id]
	if !ok {
		return Assignment{}, false
	}
	return m.assignments[i], true
}

// Talent looks up a talent by ID.
func (m *Matrix) Talent(id string) (Talent, bool) {
	if m == nil {
		return Talent{}, false
	}
	i, ok := m.talentIdx[id]
	if !ok {
		return Talent{}, false
	}
	return m.talents[i], true
}

// Assignments returns the assignments in input order.
func (m *Matrix) Assignments() []Assignment {
	if m == nil {
		return nil
	}
	return append([]Assignment(nil), m.assignments...)
}

// Talents returns the roster in input order.
func (m *Matrix) Talents() []Talent {
	if m == nil {
		return nil
	}
	return append([]Talent(nil), m.talents...)
}

// Len returns the number of cells.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cells)
}

// Cells returns a copy of the cell table.
func (m *Matrix) Cells() map[CellKey]Cell {
	if m == nil {
		return nil
	}
	out := make(map[CellKey]Cell, len(m.cells))
	for k, v := range m.cells {
		out[k] = v
	}
	return out
}
