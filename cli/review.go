package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/jh125486/batchreview/pkg/api"
	"github.com/jh125486/batchreview/pkg/cli"
	"github.com/jh125486/batchreview/pkg/client"
	"github.com/jh125486/batchreview/pkg/report"
	"github.com/jh125486/batchreview/pkg/review"
)

// ErrRemoteOnly is returned by options that need a review server.
var ErrRemoteOnly = errors.New("requires --server-url")

type (
	// ReviewCmd renders the review screen.
	ReviewCmd struct {
		cli.SessionArgs `embed:""`

		Mode             string `default:"talent" enum:"talent,assignment" help:"Pivot on a talent or on an assignment" name:"mode"`
		Detail           bool   `help:"Show the submission history of the selected pair"                               name:"detail"`
		ServerProjection bool   `help:"Show both projections as built by the server"                                   name:"server-projection"`
	}

	// ScoreCmd drafts a score without submitting it.
	ScoreCmd struct {
		cli.SessionArgs `embed:""`

		Ratings map[string]float64 `help:"Concept rating as concept=score (1-10)" name:"rating" required:""`
	}

	// GradeCmd submits a grade for the selected submission.
	GradeCmd struct {
		cli.SessionArgs `embed:""`

		Ratings      map[string]float64 `help:"Concept rating as concept=score (1-10)"               name:"rating"        required:""`
		Accept       bool               `help:"Accept the submission"                                name:"accept"`
		Remarks      string             `help:"Faculty remarks"                                      name:"remarks"`
		VoiceNote    string             `help:"URL of a recorded voice note"                         name:"voice-note"`
		Score        float64            `default:"-1"                                                help:"Score to record, negative uses the drafted score" name:"score"`
		DraftRemarks bool               `help:"Let the server draft remarks when none are given"     name:"draft-remarks"`
		Yes          bool               `help:"Submit without confirmation"                          name:"yes"           short:"y"`
	}
)

// conceptRatings converts --rating flags, ordered by concept ID.
func conceptRatings(m map[string]float64) []review.ConceptRating {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ratings := make([]review.ConceptRating, 0, len(ids))
	for _, id := range ids {
		ratings = append(ratings, review.Rating(id, m[id]))
	}
	return ratings
}

// render writes the controller's current view.
func render(w io.Writer, c *review.Controller) {
	v := c.View()
	sel := v.Session.Selection
	switch {
	case v.Talents != nil:
		report.Talents(w, *v.Talents, c.Matrix(), sel.TalentID)
	case v.Assignments != nil:
		report.Assignments(w, *v.Assignments, c.Matrix(), sel.AssignmentID)
	}
	if v.Session.DetailOpen {
		report.History(w, v.History)
	}
}

// open opens the session and starts a controller on it.
func open(ctx context.Context, args *cli.SessionArgs, svc *cli.Service, version cli.Version) (*cli.Session, *review.Controller, error) {
	sess, err := args.Open(ctx, svc, version)
	if err != nil {
		return nil, nil, err
	}
	c, err := args.Start(ctx, sess.Backend)
	if err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	return sess, c, nil
}

// Validate implements kong.Validatable.
func (cmd *ReviewCmd) Validate() error {
	if cmd.ServerProjection && cmd.ServerURL == "" {
		return fmt.Errorf("--server-projection %w", ErrRemoteOnly)
	}
	return cmd.SessionArgs.Validate()
}

// Run executes the review command.
func (cmd *ReviewCmd) Run(ctx cli.Context, svc *cli.Service, version cli.Version) error {
	sess, c, err := open(ctx, &cmd.SessionArgs, svc, version)
	if err != nil {
		return err
	}
	defer sess.Close()

	if cmd.ServerProjection {
		if sess.Remote == nil {
			return fmt.Errorf("--server-projection %w", ErrRemoteOnly)
		}
		resp, err := sess.Remote.BatchReview(ctx, cmd.Batch, c.View().Session.Selection)
		if err != nil {
			return err
		}
		report.Assignments(svc.Stdout, resp.Assignments, c.Matrix(), resp.Selection.AssignmentID)
		report.Talents(svc.Stdout, resp.Talents, c.Matrix(), resp.Selection.TalentID)
		return nil
	}

	if review.ViewMode(cmd.Mode) == review.AssignmentMode {
		if _, err := c.ToggleView(ctx); err != nil {
			return err
		}
	}
	if cmd.Detail {
		if _, err := c.OpenDetail(ctx); err != nil {
			return err
		}
	}
	render(svc.Stdout, c)
	return nil
}

// Validate implements kong.Validatable.
func (cmd *ScoreCmd) Validate() error {
	return cmd.SessionArgs.Validate()
}

// Run executes the score command. Against a server the score is drafted
// remotely.
func (cmd *ScoreCmd) Run(ctx cli.Context, svc *cli.Service, version cli.Version) error {
	sess, c, err := open(ctx, &cmd.SessionArgs, svc, version)
	if err != nil {
		return err
	}
	defer sess.Close()

	ratings := conceptRatings(cmd.Ratings)
	var breakdown review.ScoreBreakdown
	if sess.Remote != nil {
		breakdown, err = sess.Remote.ScoreSubmission(ctx, cmd.Batch, c.View().Session.Selection, ratings)
	} else {
		breakdown, err = c.DraftScore(ctx, ratings)
	}
	if err != nil {
		return err
	}
	report.Breakdown(svc.Stdout, breakdown)
	return nil
}

// Validate implements kong.Validatable.
func (cmd *GradeCmd) Validate() error {
	if cmd.DraftRemarks && cmd.ServerURL == "" {
		return fmt.Errorf("--draft-remarks %w", ErrRemoteOnly)
	}
	return cmd.SessionArgs.Validate()
}

// Run executes the grade command.
func (cmd *GradeCmd) Run(ctx cli.Context, svc *cli.Service, version cli.Version) error {
	sess, c, err := open(ctx, &cmd.SessionArgs, svc, version)
	if err != nil {
		return err
	}
	defer sess.Close()

	ratings := conceptRatings(cmd.Ratings)
	breakdown, err := c.DraftScore(ctx, ratings)
	if err != nil {
		return err
	}
	report.Breakdown(svc.Stdout, breakdown)

	grade := review.GradePayload{
		FacultyRemarks:   cmd.Remarks,
		Score:            cmd.Score,
		IsAccepted:       cmd.Accept,
		ConceptRatings:   ratings,
		FacultyVoiceNote: cmd.VoiceNote,
	}
	if grade.Score < 0 {
		grade.Score = breakdown.Score
	}
	if grade.FacultyRemarks == "" && cmd.DraftRemarks {
		if grade.FacultyRemarks, err = cmd.draftRemarks(ctx, sess, c, ratings); err != nil {
			return err
		}
	}

	if !cmd.Yes && !client.PromptForSubmission(ctx, svc.Stdout, svc.Stdin, summary(c, grade)) {
		fmt.Fprintln(svc.Stdout, "Grade not submitted")
		return nil
	}
	if err := c.SubmitGrade(ctx, grade); err != nil {
		return err
	}
	fmt.Fprintln(svc.Stdout, "Grade submitted")
	render(svc.Stdout, c)
	return nil
}

func (cmd *GradeCmd) draftRemarks(ctx context.Context, sess *cli.Session, c *review.Controller, ratings []review.ConceptRating) (string, error) {
	if sess.Remote == nil {
		return "", fmt.Errorf("--draft-remarks %w", ErrRemoteOnly)
	}
	sel := c.View().Session.Selection
	a, _ := c.Matrix().Assignment(sel.AssignmentID)
	concepts, err := sess.Backend.ConceptsForAssignment(ctx, sel.AssignmentID)
	if err != nil {
		return "", err
	}
	resp, err := sess.Remote.DraftRemarks(ctx, &api.DraftRemarksRequest{
		AssignmentTitle: a.Title,
		Concepts:        concepts,
		Ratings:         review.AlignRatings(concepts, ratings),
		Accepted:        cmd.Accept,
	})
	if err != nil {
		return "", err
	}
	return resp.Remarks, nil
}

// summary describes the pending grade for confirmation.
func summary(c *review.Controller, grade review.GradePayload) string {
	sel := c.View().Session.Selection
	m := c.Matrix()
	t, _ := m.Talent(sel.TalentID)
	a, _ := m.Assignment(sel.AssignmentID)
	verdict := "rejected"
	if grade.IsAccepted {
		verdict = "accepted"
	}
	return fmt.Sprintf("%s on %q: %s with score %.2f", t.Name(), a.Title, verdict, grade.Score)
}
