package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/boardresult"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.StudentProfile
	lastFilter models.StudentFilter
	listTotal  int
	updated    int
	err        error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			copied := s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.StudentProfile, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.StudentProfile) error {
	if m.students == nil {
		m.students = make(map[string]models.StudentProfile)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.StudentProfile) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updated++
	m.students[student.ID] = *student
	return nil
}

type stubBoard struct {
	result boardresult.Result
	last   boardresult.Query
}

func (s *stubBoard) Lookup(ctx context.Context, q boardresult.Query) boardresult.Result {
	s.last = q
	return s.result
}

func newStudentServiceForTest(repo *mockStudentRepo, board boardResultLookup) *StudentService {
	return NewStudentService(repo, board, validator.New(), zap.NewNop())
}

func strRef(v string) *string { return &v }

func TestStudentServiceMeWithoutProfile(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, nil)
	_, err := svc.Me(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProfileNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 404, appErrors.FromError(err).Status)
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentServiceForTest(repo, nil)

	student, err := svc.Create(context.Background(), "user-1", "rahim@example.com", models.StudentProfileRequest{
		FullName: strRef("Rahim Uddin"),
		SSCGPA:   strRef("5.00"),
		HSCGPA:   strRef("4.75"),
		SSCYear:  strRef("2021"),
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", student.ID)
	assert.Equal(t, "rahim@example.com", student.Email)
	assert.Equal(t, int64(0), student.CurrentBalance)
	ssc, ok := student.SSC()
	require.True(t, ok)
	assert.Equal(t, 5.0, ssc)

	_, err = svc.Create(context.Background(), "user-1", "rahim@example.com", models.StudentProfileRequest{FullName: strRef("Again")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, nil)

	_, err := svc.Create(context.Background(), "user-1", "a@example.com", models.StudentProfileRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "user-1", "a@example.com", models.StudentProfileRequest{FullName: strRef("A"), HSCGPA: strRef("5.5")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "user-1", "a@example.com", models.StudentProfileRequest{FullName: strRef("A"), SSCYear: strRef("21")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentProfile{
		"stu-1": {ID: "stu-1", UserID: "user-1", FullName: "Karim", CurrentBalance: 900},
	}}
	svc := newStudentServiceForTest(repo, nil)

	marks := 1100
	student, err := svc.Update(context.Background(), "user-1", models.StudentProfileRequest{HSCGPA: strRef("4.50"), HSCMarks: &marks})
	require.NoError(t, err)
	assert.Equal(t, "Karim", student.FullName)
	assert.Equal(t, int64(900), student.CurrentBalance)
	require.NotNil(t, student.HSCMarks)
	assert.Equal(t, 1100, *student.HSCMarks)
	assert.Equal(t, 1, repo.updated)

	_, err = svc.Update(context.Background(), "user-2", models.StudentProfileRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProfileNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListNormalizesPaging(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentProfile{"stu-1": {ID: "stu-1"}}, listTotal: 1}
	svc := newStudentServiceForTest(repo, nil)

	items, pagination, err := svc.List(context.Background(), models.StudentFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, 100, repo.lastFilter.PageSize)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceFetchBoardResult(t *testing.T) {
	board := &stubBoard{result: boardresult.Result{Success: true, GPA: "5.00"}}
	svc := newStudentServiceForTest(&mockStudentRepo{}, board)

	req := models.BoardResultRequest{Examination: "HSC", Year: "2023", Board: "dhaka", Roll: "123456", Registration: "1234567890"}
	resp, err := svc.FetchBoardResult(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.GPA)
	assert.Equal(t, "5.00", *resp.GPA)
	assert.Equal(t, "dhaka", board.last.Board)

	board.result = boardresult.Result{Success: false, Error: "result not found"}
	resp, err = svc.FetchBoardResult(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "result not found", *resp.Error)

	_, err = svc.FetchBoardResult(context.Background(), models.BoardResultRequest{Examination: "JSC"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
