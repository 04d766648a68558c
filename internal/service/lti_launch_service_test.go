package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/pkg/lti"
)

type memoryTaskStatusRepo struct {
	rows map[string]models.TaskFeedbackStatus
}

func newMemoryTaskStatusRepo() *memoryTaskStatusRepo {
	return &memoryTaskStatusRepo{rows: make(map[string]models.TaskFeedbackStatus)}
}

func (m *memoryTaskStatusRepo) Upsert(ctx context.Context, status *models.TaskFeedbackStatus) error {
	m.rows[status.IDTaskGithubClassroom] = *status
	return nil
}

func (m *memoryTaskStatusRepo) GetByTask(ctx context.Context, taskID string) (models.TaskFeedbackStatus, error) {
	status, ok := m.rows[taskID]
	if !ok {
		return models.TaskFeedbackStatus{}, gorm.ErrRecordNotFound
	}
	return status, nil
}

type stubGradeSubmitter struct {
	members   []lti.Member
	lineItem  lti.LineItem
	submitted []lti.Score
	label     string
}

func (s *stubGradeSubmitter) EnsureLineItem(ctx context.Context, lineItemsURL, label string, scoreMaximum float64) (lti.LineItem, error) {
	s.label = label
	if s.lineItem.ID == "" {
		s.lineItem = lti.LineItem{ID: "https://lms/li/1", Label: label, ScoreMaximum: scoreMaximum}
	}
	return s.lineItem, nil
}

func (s *stubGradeSubmitter) SubmitScore(ctx context.Context, lineItemID string, score lti.Score) error {
	s.submitted = append(s.submitted, score)
	return nil
}

func (s *stubGradeSubmitter) Members(ctx context.Context, membershipsURL string) ([]lti.Member, error) {
	return s.members, nil
}

type launchFixture struct {
	service   LTILaunchService
	links     *memoryTaskLinkRepo
	feedbacks *memoryFeedbackRepo
	users     *memoryUserRepo
	statuses  *memoryTaskStatusRepo
	issuer    *LaunchTokenIssuer
	grades    *stubGradeSubmitter
}

func newLaunchFixture() *launchFixture {
	fixture := &launchFixture{
		links:     newMemoryTaskLinkRepo(),
		feedbacks: newMemoryFeedbackRepo(),
		users:     newMemoryUserRepo(),
		statuses:  newMemoryTaskStatusRepo(),
		issuer:    NewLaunchTokenIssuer("launch-secret", 0),
		grades:    &stubGradeSubmitter{},
	}

	rollup := NewTaskStatusService(fixture.statuses, fixture.feedbacks, validator.New(), zerolog.Nop())
	fixture.service = NewLTILaunchService(
		fixture.links, fixture.feedbacks, fixture.users, rollup,
		fixture.issuer, fixture.grades, "https://sae.uca.edu", zerolog.Nop(),
	)

	return fixture
}

func instructorLaunch() lti.Launch {
	return lti.Launch{
		Issuer:         "https://campus.uca.edu",
		Email:          "profe@uca.edu",
		Name:           "Profesora Ejemplo",
		Roles:          []string{"http://purl.imsglobal.org/vocab/lis/v2/membership#Instructor"},
		CourseID:       "course-7",
		ResourceID:     "moodle-1",
		ResourceTitle:  "Tarea 1",
		LineItemsURL:   "https://campus.uca.edu/lineitems",
		MembershipsURL: "https://campus.uca.edu/members",
	}
}

func studentLaunch() lti.Launch {
	launch := instructorLaunch()
	launch.Email = "alumno@uca.edu"
	launch.Name = "Alumno Ejemplo"
	launch.Roles = []string{"http://purl.imsglobal.org/vocab/lis/v2/membership#Learner"}
	return launch
}

func (f *launchFixture) seedLink() {
	f.links.Create(context.Background(), &models.TaskLink{
		IDTaskGithubClassroom: "task-1",
		IDClassroom:           "class-1",
		OrgID:                 "99",
		OrgName:               "uca-poo",
		InvitationURL:         "https://classroom.github.com/a/abc",
		EmailOwner:            "profe@uca.edu",
		IDTaskMoodle:          "moodle-1",
		IDCursoMoodle:         "course-7",
		Issuer:                "https://campus.uca.edu",
	})
}

func tokenFromRedirect(t *testing.T, action Action) string {
	t.Helper()

	redirect, ok := action.(Redirect)
	require.True(t, ok, "expected a redirect, got %T", action)
	parsed, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestDecideInstructorUnlinkedRedirectsToSetup(t *testing.T) {
	fixture := newLaunchFixture()

	action, err := fixture.service.Decide(context.Background(), instructorLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(redirect.URL, "https://sae.uca.edu/task-link?token="))

	payload, err := fixture.issuer.Verify(tokenFromRedirect(t, action))
	require.NoError(t, err)
	require.Equal(t, "profe@uca.edu", payload.Email)
	require.True(t, payload.IsMoodle)
	require.Equal(t, "course-7", payload.CourseID)
	require.Equal(t, "moodle-1", payload.AssignmentID)
	require.Empty(t, payload.IDTaskGithub)
}

func TestDecideInstructorLinkedRedirectsToDashboard(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()

	action, err := fixture.service.Decide(context.Background(), instructorLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.Contains(t, redirect.URL, "/dashboard?token=")

	payload, err := fixture.issuer.Verify(tokenFromRedirect(t, action))
	require.NoError(t, err)
	require.Equal(t, "task-1", payload.IDTaskGithub)
	require.Equal(t, "uca-poo", payload.OrgName)
	require.Equal(t, "https://campus.uca.edu/lineitems", payload.LineItemsURL)
}

func TestDecideInstructorAllSentRendersChoicePage(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()

	fixture.feedbacks.Upsert(context.Background(), &models.Feedback{
		Repo: "org/t1-a", Email: "a@uca.edu", IDTaskGithubClassroom: "task-1",
		Status: models.FeedbackStatusSent,
	})
	fixture.statuses.Upsert(context.Background(), &models.TaskFeedbackStatus{
		IDTaskGithubClassroom: "task-1", CountEntregas: 1, CountEnviado: 1,
	})

	action, err := fixture.service.Decide(context.Background(), instructorLaunch())
	require.NoError(t, err)

	page, ok := action.(RenderPage)
	require.True(t, ok, "expected a rendered page, got %T", action)
	require.Contains(t, page.HTML, "Profesora Ejemplo")
	require.Contains(t, page.HTML, "/api/lti/grades/submit?token=")
	require.Contains(t, page.HTML, "/dashboard?token=")
}

func TestDecideChoicePageSanitizesName(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()

	fixture.feedbacks.Upsert(context.Background(), &models.Feedback{
		Repo: "org/t1-a", Email: "a@uca.edu", IDTaskGithubClassroom: "task-1",
		Status: models.FeedbackStatusSent,
	})
	fixture.statuses.Upsert(context.Background(), &models.TaskFeedbackStatus{
		IDTaskGithubClassroom: "task-1", CountEntregas: 1, CountEnviado: 1,
	})

	launch := instructorLaunch()
	launch.Name = `<script>alert(1)</script>Profe`

	action, err := fixture.service.Decide(context.Background(), launch)
	require.NoError(t, err)

	page, ok := action.(RenderPage)
	require.True(t, ok)
	require.NotContains(t, page.HTML, "<script>")
	require.Contains(t, page.HTML, "Profe")
}

func (f *launchFixture) seedStudent() {
	f.users.Create(context.Background(), &models.User{Email: "alumno@uca.edu"})
}

func TestDecideUnknownStudentRedirectsToOnboarding(t *testing.T) {
	fixture := newLaunchFixture()

	// No user record and no task link: registration still comes first.
	action, err := fixture.service.Decide(context.Background(), studentLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(redirect.URL, "https://sae.uca.edu/onboarding?token="))

	payload, err := fixture.issuer.Verify(tokenFromRedirect(t, action))
	require.NoError(t, err)
	require.Equal(t, "alumno@uca.edu", payload.Email)
	require.True(t, payload.IsMoodle)
	require.True(t, payload.FirstTime)
}

func TestDecideUnknownStudentIgnoresExistingLink(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()

	action, err := fixture.service.Decide(context.Background(), studentLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.Contains(t, redirect.URL, "/onboarding?token=")
}

func TestDecideStudentUnlinkedRedirectsToNotAvailable(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedStudent()

	action, err := fixture.service.Decide(context.Background(), studentLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.Equal(t, "https://sae.uca.edu/not-available", redirect.URL)
}

func TestDecideStudentWithoutFeedbackGetsInvitation(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()
	fixture.seedStudent()

	action, err := fixture.service.Decide(context.Background(), studentLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.Contains(t, redirect.URL, "/invitation?token=")

	payload, err := fixture.issuer.Verify(tokenFromRedirect(t, action))
	require.NoError(t, err)
	require.Equal(t, "https://classroom.github.com/a/abc", payload.InvitationURL)
	require.False(t, payload.FirstTime)
}

func TestDecideStudentWithFeedbackSeesIt(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()
	fixture.seedStudent()

	fixture.feedbacks.Upsert(context.Background(), &models.Feedback{
		Repo: "org/t1-alumno", Email: "alumno@uca.edu", IDTaskGithubClassroom: "task-1",
		Status: models.FeedbackStatusGenerated,
	})

	action, err := fixture.service.Decide(context.Background(), studentLaunch())
	require.NoError(t, err)

	redirect, ok := action.(Redirect)
	require.True(t, ok)
	require.Contains(t, redirect.URL, "/feedback?token=")

	payload, err := fixture.issuer.Verify(tokenFromRedirect(t, action))
	require.NoError(t, err)
	require.Equal(t, "alumno@uca.edu", payload.Email)
	require.Equal(t, "task-1", payload.IDTaskGithub)
}

func TestSubmitGradesAveragesAndSkips(t *testing.T) {
	fixture := newLaunchFixture()
	fixture.seedLink()

	fixture.feedbacks.Upsert(context.Background(), &models.Feedback{
		Repo: "org/t1-a", Email: "a@uca.edu", IDTaskGithubClassroom: "task-1",
		GradeFeedback: 8, GradeValue: 18, GradeTotal: 20,
		Status: models.FeedbackStatusSent,
	})

	fixture.grades.members = []lti.Member{
		{UserID: "11", Email: "a@uca.edu", Status: "Active"},
		{UserID: "12", Email: "b@uca.edu", Status: "Active"},
		{UserID: "13", Status: "Active"},
	}

	token, err := fixture.issuer.Issue(LaunchTokenPayload{
		Email:          "profe@uca.edu",
		IDTaskGithub:   "task-1",
		LineItemsURL:   "https://campus.uca.edu/lineitems",
		MembershipsURL: "https://campus.uca.edu/members",
		ResourceTitle:  "Tarea 1",
	})
	require.NoError(t, err)

	submitted, err := fixture.service.SubmitGrades(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, 1, submitted)

	require.Equal(t, "Tarea 1", fixture.grades.label)
	require.Len(t, fixture.grades.submitted, 1)

	score := fixture.grades.submitted[0]
	require.Equal(t, "11", score.UserID)
	// (8 + 18/20*10) / 2
	require.InDelta(t, 8.5, score.ScoreGiven, 1e-9)
	require.Equal(t, 10.0, score.ScoreMaximum)
	require.Equal(t, "Completed", score.ActivityProgress)
	require.Equal(t, "FullyGraded", score.GradingProgress)
}

func TestSubmitGradesRejectsForeignToken(t *testing.T) {
	fixture := newLaunchFixture()

	_, err := fixture.service.SubmitGrades(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidLaunchToken)
}

func TestSubmitGradesRejectsStudentToken(t *testing.T) {
	fixture := newLaunchFixture()

	token, err := fixture.issuer.Issue(LaunchTokenPayload{Email: "alumno@uca.edu", IDTaskGithub: "task-1"})
	require.NoError(t, err)

	_, err = fixture.service.SubmitGrades(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidLaunchToken)
}
