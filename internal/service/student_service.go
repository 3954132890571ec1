package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	"github.com/noah-isme/admission-agent-api/pkg/boardresult"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const maxGPA = 5.0

type studentProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, int, error)
	Create(ctx context.Context, student *models.StudentProfile) error
	Update(ctx context.Context, student *models.StudentProfile) error
}

type boardResultLookup interface {
	Lookup(ctx context.Context, q boardresult.Query) boardresult.Result
}

// StudentService handles student profile use-cases.
type StudentService struct {
	repo      studentProfileStore
	board     boardResultLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentProfileStore, board boardResultLookup, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, board: board, validator: validate, logger: logger}
}

// Me returns the profile of the signed-in user. A missing profile is
// reported as ErrProfileNotFound so clients can route to onboarding.
func (s *StudentService) Me(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return loadProfile(ctx, s.repo, userID)
}

// Create registers the signed-in user's profile. Each user owns at most one.
func (s *StudentService) Create(ctx context.Context, userID, email string, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.FullName == nil || strings.TrimSpace(*req.FullName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fullName is required")
	}
	if _, err := s.repo.FindByUserID(ctx, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	student := &models.StudentProfile{
		UserID: userID,
		Email:  email,
		Status: models.StudentStatusActive,
	}
	applyProfile(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}
	s.logger.Sugar().Infow("student profile created", "student_id", student.ID, "user_id", userID)
	return student, nil
}

// Update applies the provided fields to the signed-in user's profile.
func (s *StudentService) Update(ctx context.Context, userID string, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	student, err := loadProfile(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	applyProfile(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	return student, nil
}

// List returns student profiles and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentProfile{}
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one student profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentProfile, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// FetchBoardResult looks up an SSC or HSC result on the education board
// site. Lookup failures are reported in the response body.
func (s *StudentService) FetchBoardResult(ctx context.Context, req models.BoardResultRequest) (*models.BoardResultResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid board result request")
	}
	if s.board == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "board result lookup is not configured")
	}
	result := s.board.Lookup(ctx, boardresult.Query{
		Examination:  req.Examination,
		Year:         req.Year,
		Board:        req.Board,
		Roll:         req.Roll,
		Registration: req.Registration,
	})
	resp := &models.BoardResultResponse{Success: result.Success}
	if result.Success {
		gpa := result.GPA
		resp.GPA = &gpa
	} else {
		message := result.Error
		resp.Error = &message
		s.logger.Warn("board result lookup failed", zap.String("exam", req.Examination), zap.String("board", req.Board), zap.String("error", message))
	}
	return resp, nil
}

func (s *StudentService) validate(req models.StudentProfileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student profile payload")
	}
	for label, raw := range map[string]*string{"sscGpa": req.SSCGPA, "hscGpa": req.HSCGPA} {
		if raw == nil || strings.TrimSpace(*raw) == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
		if err != nil || value < 0 || value > maxGPA {
			return appErrors.Clone(appErrors.ErrValidation, label+" must be between 0 and 5")
		}
	}
	return nil
}

func applyProfile(student *models.StudentProfile, req models.StudentProfileRequest) {
	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		student.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	assign := func(dst **string, src *string) {
		if src != nil {
			value := strings.TrimSpace(*src)
			*dst = &value
		}
	}
	assign(&student.Phone, req.Phone)
	assign(&student.FatherName, req.FatherName)
	assign(&student.MotherName, req.MotherName)
	assign(&student.DateOfBirth, req.DateOfBirth)
	assign(&student.Gender, req.Gender)
	assign(&student.Nationality, req.Nationality)
	assign(&student.SSCRoll, req.SSCRoll)
	assign(&student.SSCRegistration, req.SSCRegistration)
	assign(&student.SSCBoard, req.SSCBoard)
	assign(&student.SSCYear, req.SSCYear)
	assign(&student.SSCGPA, req.SSCGPA)
	assign(&student.HSCRoll, req.HSCRoll)
	assign(&student.HSCRegistration, req.HSCRegistration)
	assign(&student.HSCBoard, req.HSCBoard)
	assign(&student.HSCYear, req.HSCYear)
	assign(&student.HSCGPA, req.HSCGPA)
	if req.HSCMarks != nil {
		marks := *req.HSCMarks
		student.HSCMarks = &marks
	}
}
