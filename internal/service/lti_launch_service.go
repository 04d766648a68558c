package service

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/pkg/lti"
)

// Action is the outcome of one LTI launch decision. Exactly one of the
// three variants is returned.
type Action interface{ isAction() }

// Redirect sends the browser to a frontend route, usually with a signed
// launch token in the query string.
type Redirect struct {
	URL string
}

// RenderPage serves HTML directly from the tool, used for the
// instructor grade-submission choice page.
type RenderPage struct {
	HTML string
}

func (Redirect) isAction()   {}
func (RenderPage) isAction() {}

// GradeSubmitter covers the AGS and NRPS calls of the passback loop.
type GradeSubmitter interface {
	EnsureLineItem(ctx context.Context, lineItemsURL, label string, scoreMaximum float64) (lti.LineItem, error)
	SubmitScore(ctx context.Context, lineItemID string, score lti.Score) error
	Members(ctx context.Context, membershipsURL string) ([]lti.Member, error)
}

// LTILaunchService decides what each verified Moodle launch leads to and
// runs the grade passback when the instructor asks for it.
type LTILaunchService interface {
	Decide(ctx context.Context, launch lti.Launch) (Action, error)
	SubmitGrades(ctx context.Context, rawToken string) (int, error)
}

type ltiLaunchService struct {
	links       repository.TaskLinkRepository
	feedbacks   repository.FeedbackRepository
	users       repository.UserRepository
	statuses    TaskStatusService
	issuer      *LaunchTokenIssuer
	grades      GradeSubmitter
	sanitizer   *bluemonday.Policy
	frontendURL string
	logger      zerolog.Logger
}

// NewLTILaunchService builds the launch state machine.
func NewLTILaunchService(
	links repository.TaskLinkRepository,
	feedbacks repository.FeedbackRepository,
	users repository.UserRepository,
	statuses TaskStatusService,
	issuer *LaunchTokenIssuer,
	grades GradeSubmitter,
	frontendURL string,
	logger zerolog.Logger,
) LTILaunchService {
	return &ltiLaunchService{
		links:       links,
		feedbacks:   feedbacks,
		users:       users,
		statuses:    statuses,
		issuer:      issuer,
		grades:      grades,
		sanitizer:   bluemonday.StrictPolicy(),
		frontendURL: frontendURL,
		logger:      logger.With().Str("component", "lti_launch_service").Logger(),
	}
}

// Decide routes a verified launch. Instructors land on setup, dashboard
// or the grade-submission choice page; students land on onboarding,
// their feedback, the assignment invitation, or a not-available notice.
func (s *ltiLaunchService) Decide(ctx context.Context, launch lti.Launch) (Action, error) {
	recordLaunch(launch)

	if launch.IsInstructor() || launch.IsAdmin() {
		return s.decideInstructor(ctx, launch)
	}
	return s.decideStudent(ctx, launch)
}

func (s *ltiLaunchService) decideInstructor(ctx context.Context, launch lti.Launch) (Action, error) {
	link, err := s.links.GetByMoodleTask(ctx, launch.ResourceID, launch.Issuer)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// Unlinked activity: the frontend walks the instructor through
		// binding it to a GitHub Classroom assignment.
		token, err := s.issuer.Issue(LaunchTokenPayload{
			Email:        launch.Email,
			IsMoodle:     true,
			CourseID:     launch.CourseID,
			AssignmentID: launch.ResourceID,
		})
		if err != nil {
			return nil, err
		}
		return Redirect{URL: fmt.Sprintf("%s/task-link?token=%s", s.frontendURL, token)}, nil
	}

	allSent, err := s.statuses.AllFeedbackSent(ctx, link.IDTaskGithubClassroom)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(LaunchTokenPayload{
		Email:          launch.Email,
		IsMoodle:       true,
		CourseID:       launch.CourseID,
		AssignmentID:   launch.ResourceID,
		IDTaskGithub:   link.IDTaskGithubClassroom,
		IDClassroom:    link.IDClassroom,
		OrgID:          link.OrgID,
		OrgName:        link.OrgName,
		LineItemsURL:   launch.LineItemsURL,
		MembershipsURL: launch.MembershipsURL,
		ResourceTitle:  launch.ResourceTitle,
	})
	if err != nil {
		return nil, err
	}

	if allSent {
		return RenderPage{HTML: s.choicePage(launch, token)}, nil
	}
	return Redirect{URL: fmt.Sprintf("%s/dashboard?token=%s", s.frontendURL, token)}, nil
}

func (s *ltiLaunchService) decideStudent(ctx context.Context, launch lti.Launch) (Action, error) {
	if _, err := s.users.GetByEmail(ctx, launch.Email); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Nobody with this email yet: the frontend registers the
		// student before anything task-specific happens.
		token, err := s.issuer.Issue(LaunchTokenPayload{
			Email:     launch.Email,
			IsMoodle:  true,
			FirstTime: true,
		})
		if err != nil {
			return nil, err
		}
		return Redirect{URL: fmt.Sprintf("%s/onboarding?token=%s", s.frontendURL, token)}, nil
	}

	link, err := s.links.GetByMoodleTask(ctx, launch.ResourceID, launch.Issuer)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// No teacher has linked this activity yet.
		return Redirect{URL: s.frontendURL + "/not-available"}, nil
	}

	_, err = s.feedbacks.GetByEmailAndTask(ctx, launch.Email, link.IDTaskGithubClassroom)
	switch {
	case err == nil:
		token, err := s.issuer.Issue(LaunchTokenPayload{
			Email:        launch.Email,
			IDTaskGithub: link.IDTaskGithubClassroom,
		})
		if err != nil {
			return nil, err
		}
		return Redirect{URL: fmt.Sprintf("%s/feedback?token=%s", s.frontendURL, token)}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		token, err := s.issuer.Issue(LaunchTokenPayload{
			Email:         launch.Email,
			IDTaskGithub:  link.IDTaskGithubClassroom,
			InvitationURL: link.InvitationURL,
		})
		if err != nil {
			return nil, err
		}
		return Redirect{URL: fmt.Sprintf("%s/invitation?token=%s", s.frontendURL, token)}, nil
	default:
		return nil, err
	}
}

// choicePage is served when every review of the task has been delivered:
// the instructor can push grades back to Moodle or open the dashboard.
func (s *ltiLaunchService) choicePage(launch lti.Launch, token string) string {
	name := s.sanitizer.Sanitize(launch.Name)
	title := s.sanitizer.Sanitize(launch.ResourceTitle)

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>SAE</title></head>
<body>
<h1>Hola, %s</h1>
<p>Todas las retroalimentaciones de <strong>%s</strong> fueron enviadas.</p>
<p><a href="/api/lti/grades/submit?token=%s">Enviar notas a Moodle</a></p>
<p><a href="%s/dashboard?token=%s">Ir al panel</a></p>
</body>
</html>`, name, title, html.EscapeString(token), s.frontendURL, html.EscapeString(token))
}

// SubmitGrades pushes one score per roster member to the LMS gradebook.
// The score is the mean of the AI grade and the normalized autograder
// grade. Failures for individual students are logged and skipped; the
// count of submitted scores is returned.
func (s *ltiLaunchService) SubmitGrades(ctx context.Context, rawToken string) (int, error) {
	payload, err := s.issuer.Verify(rawToken)
	if err != nil {
		return 0, err
	}
	if payload.IDTaskGithub == "" || payload.LineItemsURL == "" {
		return 0, ErrInvalidLaunchToken
	}

	label := payload.ResourceTitle
	if label == "" {
		label = "SAE " + payload.IDTaskGithub
	}
	item, err := s.grades.EnsureLineItem(ctx, payload.LineItemsURL, label, 10)
	if err != nil {
		return 0, fmt.Errorf("ensure line item: %w", err)
	}

	members, err := s.grades.Members(ctx, payload.MembershipsURL)
	if err != nil {
		return 0, fmt.Errorf("load course roster: %w", err)
	}

	submitted := 0
	for _, member := range members {
		if member.Email == "" {
			continue
		}

		feedback, err := s.feedbacks.GetByEmailAndTask(ctx, member.Email, payload.IDTaskGithub)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error().Err(err).Str("email", member.Email).Msg("load feedback for passback failed")
			}
			continue
		}
		if !feedback.IsSent() {
			continue
		}

		score := lti.Score{
			UserID:           member.UserID,
			ScoreGiven:       passbackScore(feedback),
			ScoreMaximum:     10,
			ActivityProgress: "Completed",
			GradingProgress:  "FullyGraded",
		}
		if err := s.grades.SubmitScore(ctx, item.ID, score); err != nil {
			s.logger.Error().Err(err).Str("email", member.Email).Msg("score submission failed")
			continue
		}
		submitted++
	}

	s.logger.Info().
		Str("task", payload.IDTaskGithub).
		Int("submitted", submitted).
		Int("roster", len(members)).
		Msg("grade passback finished")

	return submitted, nil
}

// passbackScore averages the AI grade with the autograder grade
// normalized to a 10-point scale. Without autograder data the AI grade
// stands alone.
func passbackScore(feedback models.Feedback) float64 {
	if feedback.GradeTotal <= 0 {
		return feedback.GradeFeedback
	}
	normalized := feedback.GradeValue / feedback.GradeTotal * 10
	return (feedback.GradeFeedback + normalized) / 2
}
