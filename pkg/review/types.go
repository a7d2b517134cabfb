// Package review implements the grading engine behind the batch assignment
// review screen: the submission matrix, its classification, the talent and
// assignment projections, and rubric scoring.
package review

import (
	"time"
)

type (
	// Assignment is a gradable unit issued to a batch. Submissions holds the
	// latest submission of every talent who submitted.
	Assignment struct {
		ID            string       `json:"id"                       yaml:"id"`
		Title         string       `json:"title,omitempty"          yaml:"title,omitempty"`
		DueDate       time.Time    `json:"due_date"                 yaml:"due_date"`
		AssignedDate  time.Time    `json:"assigned_date"            yaml:"assigned_date"`
		QuestionScore *float64     `json:"question_score,omitempty" yaml:"question_score,omitempty"`
		Submissions   []Submission `json:"submissions,omitempty"    yaml:"submissions,omitempty"`
	}

	// Talent is a trainee enrolled in a batch.
	Talent struct {
		ID        string `json:"id"                   yaml:"id"`
		FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"  yaml:"last_name,omitempty"`
		Email     string `json:"email,omitempty"      yaml:"email,omitempty"`
	}

	// Submission is one attempt of a talent at an assignment.
	Submission struct {
		ID                     string          `json:"id"                           yaml:"id"`
		TalentID               string          `json:"talent_id"                    yaml:"talent_id"`
		BatchTopicAssignmentID string          `json:"batch_topic_assignment_id"    yaml:"batch_topic_assignment_id"`
		IsChecked              bool            `json:"is_checked"                   yaml:"is_checked"`
		IsAccepted             bool            `json:"is_accepted"                  yaml:"is_accepted"`
		SubmittedOn            time.Time       `json:"submitted_on"                 yaml:"submitted_on"`
		Score                  *float64        `json:"score,omitempty"              yaml:"score,omitempty"`
		FacultyRemarks         string          `json:"faculty_remarks,omitempty"    yaml:"faculty_remarks,omitempty"`
		FacultyVoiceNote       string          `json:"faculty_voice_note,omitempty" yaml:"faculty_voice_note,omitempty"`
		ConceptRatings         []ConceptRating `json:"concept_ratings,omitempty"    yaml:"concept_ratings,omitempty"`
		IsLatest               bool            `json:"is_latest,omitempty"          yaml:"-"`
	}

	// Concept is a programming concept rated while grading an assignment.
	Concept struct {
		ID   string `json:"id"             yaml:"id"`
		Name string `json:"name,omitempty" yaml:"name,omitempty"`
	}

	// ConceptRating is the grader's 1-10 rating of one concept. A nil Score
	// means the concept has not been rated yet.
	ConceptRating struct {
		ProgrammingConceptModuleID string   `json:"programming_concept_module_id" validate:"required"                yaml:"programming_concept_module_id"`
		Score                      *float64 `json:"score"                         validate:"required,gte=1,lte=10" yaml:"score"`
	}
)

// Name returns the display name of the talent.
func (t Talent) Name() string {
	switch {
	case t.FirstName != "" && t.LastName != "":
		return t.FirstName + " " + t.LastName
	case t.FirstName != "":
		return t.FirstName
	case t.LastName != "":
		return t.LastName
	default:
		return t.ID
	}
}

// MaxScore returns the question's maximum score, zero when the assignment has
// no programming question attached.
func (a Assignment) MaxScore() float64 {
	if a.QuestionScore == nil {
		return 0
	}
	return *a.QuestionScore
}

// Rating is a convenience constructor for a rated concept.
func Rating(conceptID string, score float64) ConceptRating {
	return ConceptRating{ProgrammingConceptModuleID: conceptID, Score: &score}
}
