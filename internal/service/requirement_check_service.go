package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

const penaltyDetail = 10

type requirementCheckStore interface {
	Create(ctx context.Context, check *models.RequirementCheck) error
	FindByID(ctx context.Context, id string) (*models.RequirementCheck, error)
}

// RequirementCheckService runs and stores detailed checks against a circular,
// including department, age and nationality rules.
type RequirementCheckService struct {
	repo      requirementCheckStore
	students  profileFinder
	circulars circularReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRequirementCheckService constructs a RequirementCheckService.
func NewRequirementCheckService(repo requirementCheckStore, students profileFinder, circulars circularReader, validate *validator.Validate, logger *zap.Logger) *RequirementCheckService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequirementCheckService{repo: repo, students: students, circulars: circulars, validator: validate, logger: logger, now: time.Now}
}

// Create evaluates and persists a requirement check for the signed-in student.
func (s *RequirementCheckService) Create(ctx context.Context, userID string, req models.RequirementCheckRequest) (*models.RequirementCheck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requirement check payload")
	}
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	circular, err := s.circulars.FindByID(ctx, req.CircularID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "circular not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load circular")
	}
	if circular.Data == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "circular has not been analyzed")
	}

	var department *models.DepartmentRequirement
	if code := strings.TrimSpace(req.DepartmentCode); code != "" {
		department = findDepartment(circular.Data.DepartmentWiseRequirements, code)
		if department == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found in circular")
		}
	}

	check := CheckRequirements(student, *circular.Data, department, s.now())
	check.StudentID = student.ID
	check.CircularID = circular.ID
	if department != nil {
		code := strings.TrimSpace(req.DepartmentCode)
		check.DepartmentCode = &code
	}
	if err := s.repo.Create(ctx, check); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store requirement check")
	}
	s.logger.Sugar().Infow("requirement check stored", "check_id", check.ID, "circular_id", circular.ID, "status", check.Status)
	return check, nil
}

// Get returns one of the signed-in student's checks.
func (s *RequirementCheckService) Get(ctx context.Context, userID, id string) (*models.RequirementCheck, error) {
	student, err := loadProfile(ctx, s.students, userID)
	if err != nil {
		return nil, err
	}
	check, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement check not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requirement check")
	}
	if check.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement check not found")
	}
	return check, nil
}

// CheckRequirements extends EvaluateEligibility with department minimums,
// age limits and nationality. A rule whose inputs are missing on the profile
// stays undetermined and makes an otherwise passing check conditional.
func CheckRequirements(profile *models.StudentProfile, circular models.AdmissionCircularData, department *models.DepartmentRequirement, now time.Time) *models.RequirementCheck {
	base := EvaluateEligibility(profile, circular)
	check := &models.RequirementCheck{Score: base.Score, MissingRequirements: []string{}}
	for _, reason := range base.Reasons {
		if reason != reasonAllMet {
			check.MissingRequirements = append(check.MissingRequirements, reason)
		}
	}
	if profile == nil {
		check.Status = models.RequirementNotEligible
		return check
	}

	undetermined := false
	fail := func(reason string) {
		check.Score -= penaltyDetail
		if check.Score < 0 {
			check.Score = 0
		}
		check.MissingRequirements = append(check.MissingRequirements, reason)
	}

	check.MeetsGeneralGPA = generalGPAVerdict(profile, circular.GeneralGpaRequirements, base)
	check.MeetsYearRequirement = yearVerdict(profile, circular.YearRequirements)

	if department != nil {
		ok, diff, known := departmentVerdict(profile, *department)
		switch {
		case !known:
			undetermined = true
		case ok:
			check.MeetsDepartmentGPA = boolRef(true)
		default:
			check.MeetsDepartmentGPA = boolRef(false)
			fail(fmt.Sprintf("%s: department GPA minimums not met", department.DepartmentName))
		}
		check.GPADifference = diff
	}

	if circular.AgeLimitMin != nil || circular.AgeLimitMax != nil {
		age, ok := ageOn(profile.DateOfBirth, now)
		switch {
		case !ok:
			undetermined = true
		case circular.AgeLimitMin != nil && age < *circular.AgeLimitMin:
			check.MeetsAgeRequirement = boolRef(false)
			fail(fmt.Sprintf("Age must be at least %d, yours %d", *circular.AgeLimitMin, age))
		case circular.AgeLimitMax != nil && age > *circular.AgeLimitMax:
			check.MeetsAgeRequirement = boolRef(false)
			fail(fmt.Sprintf("Age must be at most %d, yours %d", *circular.AgeLimitMax, age))
		default:
			check.MeetsAgeRequirement = boolRef(true)
		}
	}

	if want := trimmed(circular.NationalityRequirement); want != "" {
		have := trimmed(profile.Nationality)
		switch {
		case have == "":
			undetermined = true
		case strings.EqualFold(have, want):
			check.MeetsNationalityRequirement = boolRef(true)
		default:
			check.MeetsNationalityRequirement = boolRef(false)
			fail("Nationality must be " + want)
		}
	}

	switch {
	case len(check.MissingRequirements) > 0:
		check.Status = models.RequirementNotEligible
	case undetermined:
		check.Status = models.RequirementConditional
	default:
		check.Status = models.RequirementEligible
	}
	return check
}

func generalGPAVerdict(profile *models.StudentProfile, req models.GpaRequirement, base models.EligibilityResult) *bool {
	_, needSSC := requirement(req.SSC)
	_, needHSC := requirement(req.HSC)
	_, needTotal := requirement(req.Total)
	if !needSSC && !needHSC && !needTotal {
		return nil
	}
	for _, reason := range base.Reasons {
		if strings.Contains(reason, "GPA: Required") {
			return boolRef(false)
		}
	}
	_, hasSSC := profile.SSC()
	_, hasHSC := profile.HSC()
	if (needSSC && !hasSSC) || (needHSC && !hasHSC) || (needTotal && !(hasSSC && hasHSC)) {
		return nil
	}
	return boolRef(true)
}

func yearVerdict(profile *models.StudentProfile, years models.YearRequirement) *bool {
	if len(years.SSCYears) == 0 && len(years.HSCYears) == 0 {
		return nil
	}
	if yearRejected(years.SSCYears, profile.SSCYear) || yearRejected(years.HSCYears, profile.HSCYear) {
		return boolRef(false)
	}
	if (len(years.SSCYears) > 0 && trimmed(profile.SSCYear) == "") || (len(years.HSCYears) > 0 && trimmed(profile.HSCYear) == "") {
		return nil
	}
	return boolRef(true)
}

// departmentVerdict compares the profile against a department's minimums.
// diff is the total GPA margin over the department total minimum when both are known.
func departmentVerdict(profile *models.StudentProfile, dept models.DepartmentRequirement) (ok bool, diff *float64, known bool) {
	ssc, hasSSC := profile.SSC()
	hsc, hasHSC := profile.HSC()
	ok, known = true, true
	if want, declared := requirement(dept.MinGpaSSC); declared {
		if !hasSSC {
			known = false
		} else if ssc < want {
			ok = false
		}
	}
	if want, declared := requirement(dept.MinGpaHSC); declared {
		if !hasHSC {
			known = false
		} else if hsc < want {
			ok = false
		}
	}
	if want, declared := requirement(dept.MinGpaTotal); declared {
		if !hasSSC || !hasHSC {
			known = false
		} else {
			margin := ssc + hsc - want
			diff = &margin
			if margin < 0 {
				ok = false
			}
		}
	}
	if !ok {
		known = true
	}
	return ok, diff, known
}

func findDepartment(departments []models.DepartmentRequirement, code string) *models.DepartmentRequirement {
	for i := range departments {
		dept := &departments[i]
		if dept.DepartmentCode != nil && strings.EqualFold(*dept.DepartmentCode, code) {
			return dept
		}
		if strings.EqualFold(dept.DepartmentName, code) {
			return dept
		}
	}
	return nil
}

func ageOn(dateOfBirth *string, now time.Time) (int, bool) {
	raw := trimmed(dateOfBirth)
	if raw == "" {
		return 0, false
	}
	dob, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return 0, false
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func boolRef(v bool) *bool {
	return &v
}
