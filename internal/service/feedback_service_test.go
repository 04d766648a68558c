package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/pkg/ai"
	"github.com/uca-sae/sae-go-api/pkg/crypto"
	"github.com/uca-sae/sae-go-api/pkg/github"
)

type memoryFeedbackRepo struct {
	rows   map[string]models.Feedback
	nextID uint
}

func newMemoryFeedbackRepo() *memoryFeedbackRepo {
	return &memoryFeedbackRepo{rows: make(map[string]models.Feedback), nextID: 1}
}

func feedbackKey(email, taskID string) string { return email + "|" + taskID }

func (m *memoryFeedbackRepo) Upsert(ctx context.Context, feedback *models.Feedback) error {
	key := feedbackKey(feedback.Email, feedback.IDTaskGithubClassroom)
	if existing, ok := m.rows[key]; ok {
		feedback.ID = existing.ID
	} else {
		feedback.ID = m.nextID
		m.nextID++
	}
	m.rows[key] = *feedback
	return nil
}

func (m *memoryFeedbackRepo) GetByEmailAndTask(ctx context.Context, email, taskID string) (models.Feedback, error) {
	row, ok := m.rows[feedbackKey(email, taskID)]
	if !ok {
		return models.Feedback{}, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (m *memoryFeedbackRepo) GetByRepo(ctx context.Context, repo string) (models.Feedback, error) {
	for _, row := range m.rows {
		if row.Repo == repo {
			return row, nil
		}
	}
	return models.Feedback{}, gorm.ErrRecordNotFound
}

func (m *memoryFeedbackRepo) ListByTask(ctx context.Context, taskID string) ([]models.Feedback, error) {
	var rows []models.Feedback
	for _, row := range m.rows {
		if row.IDTaskGithubClassroom == taskID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memoryFeedbackRepo) CountByTaskAndStatus(ctx context.Context, taskID, status string) (int64, error) {
	var count int64
	for _, row := range m.rows {
		if row.IDTaskGithubClassroom == taskID && row.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *memoryFeedbackRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	for key, row := range m.rows {
		if row.ID == id {
			row.Status = status
			m.rows[key] = row
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryFeedbackRepo) UpdateGrade(ctx context.Context, id uint, grade float64, reviewedBy string) error {
	for key, row := range m.rows {
		if row.ID == id {
			row.GradeFeedback = grade
			row.ReviewedBy = reviewedBy
			m.rows[key] = row
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryModelRepo struct {
	types  map[string]models.ModelType
	models map[uint]models.AIModel
	nextID uint
}

func newMemoryModelRepo() *memoryModelRepo {
	return &memoryModelRepo{
		types:  make(map[string]models.ModelType),
		models: make(map[uint]models.AIModel),
		nextID: 1,
	}
}

func (m *memoryModelRepo) ListTypes(ctx context.Context) ([]models.ModelType, error) {
	types := make([]models.ModelType, 0, len(m.types))
	for _, modelType := range m.types {
		types = append(types, modelType)
	}
	return types, nil
}

func (m *memoryModelRepo) GetTypeByName(ctx context.Context, name string) (models.ModelType, error) {
	modelType, ok := m.types[name]
	if !ok {
		return models.ModelType{}, gorm.ErrRecordNotFound
	}
	return modelType, nil
}

func (m *memoryModelRepo) Create(ctx context.Context, model *models.AIModel) error {
	model.ID = m.nextID
	m.nextID++
	m.models[model.ID] = *model
	return nil
}

func (m *memoryModelRepo) Update(ctx context.Context, model *models.AIModel) error {
	if _, ok := m.models[model.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.models[model.ID] = *model
	return nil
}

func (m *memoryModelRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.models[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.models, id)
	return nil
}

func (m *memoryModelRepo) GetByID(ctx context.Context, id uint) (models.AIModel, error) {
	model, ok := m.models[id]
	if !ok {
		return models.AIModel{}, gorm.ErrRecordNotFound
	}
	return model, nil
}

func (m *memoryModelRepo) ListByOwner(ctx context.Context, email string) ([]models.AIModel, error) {
	var list []models.AIModel
	for _, model := range m.models {
		if model.OwnerEmail != nil && *model.OwnerEmail == email {
			list = append(list, model)
		}
	}
	return list, nil
}

func (m *memoryModelRepo) ListByOrg(ctx context.Context, orgID string) ([]models.AIModel, error) {
	var list []models.AIModel
	for _, model := range m.models {
		if model.OrgID != nil && *model.OrgID == orgID {
			list = append(list, model)
		}
	}
	return list, nil
}

type memoryTaskLinkRepo struct {
	links  []models.TaskLink
	nextID uint
}

func newMemoryTaskLinkRepo() *memoryTaskLinkRepo {
	return &memoryTaskLinkRepo{nextID: 1}
}

func (m *memoryTaskLinkRepo) Create(ctx context.Context, link *models.TaskLink) error {
	link.ID = m.nextID
	m.nextID++
	m.links = append(m.links, *link)
	return nil
}

func (m *memoryTaskLinkRepo) GetByMoodleTask(ctx context.Context, idTaskMoodle, issuer string) (models.TaskLink, error) {
	for _, link := range m.links {
		if link.IDTaskMoodle == idTaskMoodle && link.Issuer == issuer {
			return link, nil
		}
	}
	return models.TaskLink{}, gorm.ErrRecordNotFound
}

func (m *memoryTaskLinkRepo) GetByGithubTask(ctx context.Context, idTaskGithubClassroom string) (models.TaskLink, error) {
	for _, link := range m.links {
		if link.IDTaskGithubClassroom == idTaskGithubClassroom {
			return link, nil
		}
	}
	return models.TaskLink{}, gorm.ErrRecordNotFound
}

func (m *memoryTaskLinkRepo) ExistsTriple(ctx context.Context, githubTaskID, moodleTaskID, moodleCourseID string) (bool, error) {
	for _, link := range m.links {
		if link.IDTaskGithubClassroom == githubTaskID && link.IDTaskMoodle == moodleTaskID && link.IDCursoMoodle == moodleCourseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTaskLinkRepo) ListByOwner(ctx context.Context, emailOwner string) ([]models.TaskLink, error) {
	var links []models.TaskLink
	for _, link := range m.links {
		if link.EmailOwner == emailOwner {
			links = append(links, link)
		}
	}
	return links, nil
}

type memoryUserRepo struct {
	users  map[string]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]models.User), nextID: 1}
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.Email] = *user
	return nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	stored, ok := m.users[user.Email]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	organizations := stored.Organizations
	m.users[user.Email] = *user
	stored = m.users[user.Email]
	stored.Organizations = organizations
	m.users[user.Email] = stored
	return nil
}

func (m *memoryUserRepo) ReplaceMemberships(ctx context.Context, userID uint, memberships []models.OrgMembership) error {
	for email, user := range m.users {
		if user.ID == userID {
			for i := range memberships {
				memberships[i].UserID = userID
			}
			user.Organizations = memberships
			m.users[email] = user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) ListByOrg(ctx context.Context, orgID string) ([]models.User, error) {
	var users []models.User
	for _, user := range m.users {
		if _, ok := user.MembershipIn(orgID); ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memoryUserRepo) SetMembershipRole(ctx context.Context, userID uint, orgID, role string) error {
	for email, user := range m.users {
		if user.ID != userID {
			continue
		}
		for i, org := range user.Organizations {
			if org.OrgID == orgID {
				user.Organizations[i].Role = role
				m.users[email] = user
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) SetMembershipActive(ctx context.Context, userID uint, orgID string, active bool) error {
	for email, user := range m.users {
		if user.ID != userID {
			continue
		}
		for i, org := range user.Organizations {
			if org.OrgID == orgID {
				user.Organizations[i].IsActive = active
				m.users[email] = user
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

type stubGithubGateway struct {
	content      github.RepoContent
	contentErr   error
	posted       []string
	postErr      error
	fetchedRepo  string
	fetchedOrg   string
	fetchedToken string
}

func (s *stubGithubGateway) FetchRepoContent(ctx context.Context, token, orgName, repo, extension string) (github.RepoContent, error) {
	s.fetchedToken = token
	s.fetchedOrg = orgName
	s.fetchedRepo = repo
	return s.content, s.contentErr
}

func (s *stubGithubGateway) PostFeedback(ctx context.Context, token, owner, repo, feedback string) error {
	if s.postErr != nil {
		return s.postErr
	}
	s.posted = append(s.posted, owner+"/"+repo)
	return nil
}

type stubRollup struct {
	refreshed []string
}

func (s *stubRollup) Refresh(ctx context.Context, taskID string) error {
	s.refreshed = append(s.refreshed, taskID)
	return nil
}

type scriptedCompleter struct {
	reply string
	err   error
	seen  []ai.Request
}

func (s *scriptedCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	s.seen = append(s.seen, req)
	return s.reply, s.err
}

func (s *scriptedCompleter) Provider() string { return "OpenAI" }

type feedbackFixture struct {
	service   FeedbackService
	feedbacks *memoryFeedbackRepo
	models    *memoryModelRepo
	links     *memoryTaskLinkRepo
	users     *memoryUserRepo
	gh        *stubGithubGateway
	rollup    *stubRollup
	completer *scriptedCompleter
	cipher    *crypto.Cipher
}

func newFeedbackFixture(t *testing.T, reply string) *feedbackFixture {
	t.Helper()

	fixture := &feedbackFixture{
		feedbacks: newMemoryFeedbackRepo(),
		models:    newMemoryModelRepo(),
		links:     newMemoryTaskLinkRepo(),
		users:     newMemoryUserRepo(),
		gh:        &stubGithubGateway{content: github.RepoContent{Readme: "# Tarea", Code: "public class Main {}"}},
		rollup:    &stubRollup{},
		completer: &scriptedCompleter{reply: reply},
		cipher:    crypto.New("test-secret"),
	}

	registry := ai.Registry{
		"OpenAI": func(apiKey string) (ai.Completer, error) {
			if apiKey == "" {
				return nil, fmt.Errorf("empty key")
			}
			return fixture.completer, nil
		},
	}

	fixture.service = NewFeedbackService(
		fixture.feedbacks, fixture.models, fixture.links, fixture.users,
		registry, fixture.cipher, fixture.gh, fixture.rollup,
		validator.New(), zerolog.Nop(),
	)

	fixture.models.types[models.ProviderOpenAI] = models.ModelType{ID: 1, Name: models.ProviderOpenAI, Models: []string{"gpt-4o"}}

	encrypted, err := fixture.cipher.Encrypt("sk-real-key")
	require.NoError(t, err)
	owner := "profe@uca.edu"
	require.NoError(t, fixture.models.Create(context.Background(), &models.AIModel{
		Name:        "Clave curso",
		Version:     "gpt-4o",
		APIKey:      encrypted,
		ModelTypeID: 1,
		ModelType:   models.ModelType{ID: 1, Name: models.ProviderOpenAI},
		OwnerEmail:  &owner,
	}))

	require.NoError(t, fixture.links.Create(context.Background(), &models.TaskLink{
		IDTaskGithubClassroom: "task-1",
		IDClassroom:           "class-1",
		OrgID:                 "99",
		OrgName:               "uca-poo",
		InvitationURL:         "https://classroom.github.com/a/abc",
		EmailOwner:            "profe@uca.edu",
		IDTaskMoodle:          "moodle-1",
		IDCursoMoodle:         "course-7",
		Issuer:                "https://campus.uca.edu",
	}))

	require.NoError(t, fixture.users.Create(context.Background(), &models.User{
		Email:             "profe@uca.edu",
		GithubAccessToken: "gho_teacher",
		Organizations: []models.OrgMembership{
			{OrgID: "99", OrgName: "uca-poo", Role: models.RoleTeacher, IsActive: true},
		},
	}))

	return fixture
}

func generateRequest() dto.FeedbackGenerateRequest {
	return dto.FeedbackGenerateRequest{
		Repo:                  "tarea-1-alumno",
		Email:                 "alumno@uca.edu",
		IDTaskGithubClassroom: "task-1",
		ModelID:               1,
		Extension:             ".java",
		Language:              "Java",
		Subject:               "POO",
		StudentLevel:          "segundo año",
	}
}

func TestGenerateStoresGradedFeedback(t *testing.T) {
	fixture := newFeedbackFixture(t, "Buen trabajo.\n\n**NOTA_RETROALIMENTACION: [9]**")

	response, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	require.Equal(t, models.FeedbackStatusGenerated, response.Status)
	require.Equal(t, 9.0, response.GradeFeedback)
	require.Equal(t, "OpenAI", response.ModelIA)
	require.Contains(t, response.Feedback, "NOTA_RETROALIMENTACION")

	require.Equal(t, "gho_teacher", fixture.gh.fetchedToken)
	require.Equal(t, "uca-poo", fixture.gh.fetchedOrg)
	require.Equal(t, "tarea-1-alumno", fixture.gh.fetchedRepo)
	require.Equal(t, []string{"task-1"}, fixture.rollup.refreshed)

	require.Len(t, fixture.completer.seen, 1)
	require.Equal(t, "gpt-4o", fixture.completer.seen[0].Model)
	require.Contains(t, fixture.completer.seen[0].Sections.Input, "public class Main {}")
}

func TestGenerateDispatchesStoredCredentialVersion(t *testing.T) {
	fixture := newFeedbackFixture(t, "**NOTA_RETROALIMENTACION: [7]**")

	// Whatever the caller sends, the completion runs against the version
	// configured on the stored credential.
	credential := fixture.models.models[1]
	credential.Version = "gpt-4o-mini"
	fixture.models.models[1] = credential

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	require.Len(t, fixture.completer.seen, 1)
	require.Equal(t, "gpt-4o-mini", fixture.completer.seen[0].Model)
}

func TestGenerateOverwritesPreviousReview(t *testing.T) {
	fixture := newFeedbackFixture(t, "**NOTA_RETROALIMENTACION: [6]**")

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	fixture.completer.reply = "**NOTA_RETROALIMENTACION: [8.5]**"
	response, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	require.Equal(t, 8.5, response.GradeFeedback)
	require.Len(t, fixture.feedbacks.rows, 1)
}

func TestGeneratePreservesAutograderGrades(t *testing.T) {
	fixture := newFeedbackFixture(t, "**NOTA_RETROALIMENTACION: [7]**")

	require.NoError(t, fixture.feedbacks.Upsert(context.Background(), &models.Feedback{
		Repo:                  "tarea-1-alumno",
		Email:                 "alumno@uca.edu",
		IDTaskGithubClassroom: "task-1",
		GradeValue:            18,
		GradeTotal:            20,
		Status:                models.FeedbackStatusPending,
	}))

	response, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)
	require.Equal(t, 18.0, response.GradeValue)
	require.Equal(t, 20.0, response.GradeTotal)
}

func TestGenerateUnknownModel(t *testing.T) {
	fixture := newFeedbackFixture(t, "irrelevante")

	request := generateRequest()
	request.ModelID = 77
	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", request)
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestGenerateForbiddenForOutsideTeacher(t *testing.T) {
	fixture := newFeedbackFixture(t, "irrelevante")

	_, err := fixture.service.Generate(context.Background(), "otro@uca.edu", generateRequest())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGenerateCorruptCredential(t *testing.T) {
	fixture := newFeedbackFixture(t, "irrelevante")

	broken := fixture.models.models[1]
	broken.APIKey = "not-a-ciphertext"
	fixture.models.models[1] = broken

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGenerateUnsupportedProvider(t *testing.T) {
	fixture := newFeedbackFixture(t, "irrelevante")

	fixture.models.types["Claude"] = models.ModelType{ID: 2, Name: "Claude"}
	credential := fixture.models.models[1]
	credential.ModelType = models.ModelType{ID: 2, Name: "Claude"}
	fixture.models.models[1] = credential

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestGenerateProviderFailureSurfaces(t *testing.T) {
	fixture := newFeedbackFixture(t, "")
	fixture.completer.err = fmt.Errorf("rate limited")

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
	require.Empty(t, fixture.feedbacks.rows)
}

func TestSubmitToPRMarksSentAndRefreshesRollup(t *testing.T) {
	fixture := newFeedbackFixture(t, "**NOTA_RETROALIMENTACION: [9]**")

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	err = fixture.service.SubmitToPR(context.Background(), "profe@uca.edu", "alumno@uca.edu", "task-1")
	require.NoError(t, err)

	require.Equal(t, []string{"uca-poo/tarea-1-alumno"}, fixture.gh.posted)

	row, err := fixture.feedbacks.GetByEmailAndTask(context.Background(), "alumno@uca.edu", "task-1")
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusSent, row.Status)
	require.Equal(t, []string{"task-1", "task-1"}, fixture.rollup.refreshed)
}

func TestSearchMissingFeedback(t *testing.T) {
	fixture := newFeedbackFixture(t, "irrelevante")

	_, err := fixture.service.Search(context.Background(), "nadie@uca.edu", "task-1")
	require.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestUpdateGradeRecordsReviewer(t *testing.T) {
	fixture := newFeedbackFixture(t, "**NOTA_RETROALIMENTACION: [5]**")

	_, err := fixture.service.Generate(context.Background(), "profe@uca.edu", generateRequest())
	require.NoError(t, err)

	response, err := fixture.service.UpdateGrade(context.Background(), "alumno@uca.edu", "task-1", dto.FeedbackGradeUpdateRequest{
		GradeFeedback: 7.5,
		ReviewedBy:    "profe@uca.edu",
	})
	require.NoError(t, err)
	require.Equal(t, 7.5, response.GradeFeedback)
	require.Equal(t, "profe@uca.edu", response.ReviewedBy)
}
