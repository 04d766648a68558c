package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/pkg/github"
)

// ClassroomGateway covers the GitHub Classroom endpoints the proxy exposes.
type ClassroomGateway interface {
	ListClassrooms(ctx context.Context, token, orgID string) ([]github.Classroom, error)
	ListAssignments(ctx context.Context, token, classroomID string) ([]github.Assignment, error)
	ListAcceptedAssignments(ctx context.Context, token, assignmentID string) ([]github.AcceptedAssignment, error)
	ListAssignmentGrades(ctx context.Context, token, assignmentID string) ([]github.AssignmentGrade, error)
	LatestWorkflowRun(ctx context.Context, token, orgName, repo string) (*github.WorkflowRun, error)
	WorkflowJobs(ctx context.Context, token, orgName, repo string, runID int64) ([]github.WorkflowJob, error)
}

// ClassroomService proxies GitHub Classroom reads, resolving the
// caller's stored GitHub token by email.
type ClassroomService interface {
	Classrooms(ctx context.Context, email, orgID string) ([]github.Classroom, error)
	Assignments(ctx context.Context, email, classroomID string) ([]github.Assignment, error)
	AcceptedAssignments(ctx context.Context, email, assignmentID string) ([]github.AcceptedAssignment, error)
	AssignmentGrades(ctx context.Context, email, assignmentID string) ([]github.AssignmentGrade, error)
	LatestWorkflowRun(ctx context.Context, email, orgName, repo string) (*github.WorkflowRun, error)
	WorkflowJobs(ctx context.Context, email, orgName, repo string, runID int64) ([]github.WorkflowJob, error)
}

type classroomService struct {
	users  repository.UserRepository
	gh     ClassroomGateway
	logger zerolog.Logger
}

// NewClassroomService builds the GitHub Classroom proxy.
func NewClassroomService(users repository.UserRepository, gh ClassroomGateway, logger zerolog.Logger) ClassroomService {
	return &classroomService{
		users:  users,
		gh:     gh,
		logger: logger.With().Str("component", "classroom_service").Logger(),
	}
}

func (s *classroomService) token(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if user.GithubAccessToken == "" {
		return "", fmt.Errorf("%w: user has no github token", ErrForbidden)
	}
	return user.GithubAccessToken, nil
}

func (s *classroomService) Classrooms(ctx context.Context, email, orgID string) ([]github.Classroom, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.ListClassrooms(ctx, token, orgID)
}

func (s *classroomService) Assignments(ctx context.Context, email, classroomID string) ([]github.Assignment, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.ListAssignments(ctx, token, classroomID)
}

func (s *classroomService) AcceptedAssignments(ctx context.Context, email, assignmentID string) ([]github.AcceptedAssignment, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.ListAcceptedAssignments(ctx, token, assignmentID)
}

func (s *classroomService) AssignmentGrades(ctx context.Context, email, assignmentID string) ([]github.AssignmentGrade, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.ListAssignmentGrades(ctx, token, assignmentID)
}

func (s *classroomService) LatestWorkflowRun(ctx context.Context, email, orgName, repo string) (*github.WorkflowRun, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.LatestWorkflowRun(ctx, token, orgName, repo)
}

func (s *classroomService) WorkflowJobs(ctx context.Context, email, orgName, repo string, runID int64) ([]github.WorkflowJob, error) {
	token, err := s.token(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.gh.WorkflowJobs(ctx, token, orgName, repo, runID)
}
