package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs. *Repository satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	InsertClass(ctx context.Context, c Class) (Class, error)
	UpdateClass(ctx context.Context, c Class) (Class, error)
	GetClass(ctx context.Context, id string) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)

	InsertStudent(ctx context.Context, s Student) (Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	SetStudentActive(ctx context.Context, id string, active bool) error
	GetStudent(ctx context.Context, id string) (*Student, error)
	ListStudents(ctx context.Context, classID string) ([]Student, error)
	Roster(ctx context.Context, classID string) ([]Student, error)

	InsertProfile(ctx context.Context, p Profile) (Profile, error)
	UpdateProfile(ctx context.Context, p Profile) (Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)

	SaveRefreshToken(ctx context.Context, profileID, token string, expiresAt time.Time) error
	RefreshTokenProfile(ctx context.Context, token string) (string, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

// ErrProfilePaused is returned when a paused profile tries to authenticate.
var ErrProfilePaused = errors.New("profile is paused")

// ErrNotFound is returned for lookups of unknown records.
var ErrNotFound = errors.New("not found")

// Service implements school record management and roster loading.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateClass registers a new class.
func (s *Service) CreateClass(ctx context.Context, name string, yearLevel int, section *string) (Class, error) {
	if name == "" {
		return Class{}, errors.New("class name required")
	}
	if yearLevel <= 0 {
		return Class{}, errors.New("year level required")
	}
	return s.store.InsertClass(ctx, Class{
		ID:        uuid.NewString(),
		Name:      name,
		YearLevel: yearLevel,
		Section:   section,
		Active:    true,
	})
}

// UpdateClass overwrites an existing class.
func (s *Service) UpdateClass(ctx context.Context, c Class) (Class, error) {
	if c.ID == "" {
		return Class{}, errors.New("class id required")
	}
	if c.Name == "" {
		return Class{}, errors.New("class name required")
	}
	existing, err := s.store.GetClass(ctx, c.ID)
	if err != nil {
		return Class{}, err
	}
	if existing == nil {
		return Class{}, ErrNotFound
	}
	return s.store.UpdateClass(ctx, c)
}

// ListClasses returns all classes.
func (s *Service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.store.ListClasses(ctx)
}

// CreateStudent enrolls a new student into a class.
func (s *Service) CreateStudent(ctx context.Context, st Student) (Student, error) {
	if st.StudentNumber == "" || st.FirstName == "" || st.LastName == "" {
		return Student{}, errors.New("student number and name required")
	}
	if st.ClassID == "" {
		return Student{}, errors.New("class required")
	}
	class, err := s.store.GetClass(ctx, st.ClassID)
	if err != nil {
		return Student{}, err
	}
	if class == nil {
		return Student{}, ErrNotFound
	}
	st.ID = uuid.NewString()
	st.Active = true
	if st.EnrolledOn == "" {
		st.EnrolledOn = time.Now().UTC().Format("2006-01-02")
	}
	return s.store.InsertStudent(ctx, st)
}

// UpdateStudent overwrites an existing student.
func (s *Service) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		return Student{}, errors.New("student id required")
	}
	if st.StudentNumber == "" || st.FirstName == "" || st.LastName == "" {
		return Student{}, errors.New("student number and name required")
	}
	existing, err := s.store.GetStudent(ctx, st.ID)
	if err != nil {
		return Student{}, err
	}
	if existing == nil {
		return Student{}, ErrNotFound
	}
	return s.store.UpdateStudent(ctx, st)
}

// DeactivateStudent soft-deletes a student. The row stays for historical
// attendance records.
func (s *Service) DeactivateStudent(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("student id required")
	}
	return s.store.SetStudentActive(ctx, id, false)
}

// ListStudents returns students, optionally filtered by class.
func (s *Service) ListStudents(ctx context.Context, classID string) ([]Student, error) {
	return s.store.ListStudents(ctx, classID)
}

// Roster returns the active students of a class ordered by last name.
func (s *Service) Roster(ctx context.Context, classID string) ([]Student, error) {
	if classID == "" {
		return nil, errors.New("class id required")
	}
	return s.store.Roster(ctx, classID)
}

// CreateProfile provisions an account profile. New profiles start active.
func (s *Service) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.Email == "" || p.FullName == "" {
		return Profile{}, errors.New("email and full name required")
	}
	if !p.Role.Valid() {
		return Profile{}, errors.New("invalid role")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = StatusActive
	return s.store.InsertProfile(ctx, p)
}

// UpdateProfile mutates role, status, name or default class. Profiles are
// never deleted; pausing is the only way to disable one.
func (s *Service) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		return Profile{}, errors.New("profile id required")
	}
	if !p.Role.Valid() {
		return Profile{}, errors.New("invalid role")
	}
	if !p.Status.Valid() {
		return Profile{}, errors.New("invalid status")
	}
	existing, err := s.store.GetProfile(ctx, p.ID)
	if err != nil {
		return Profile{}, err
	}
	if existing == nil {
		return Profile{}, ErrNotFound
	}
	return s.store.UpdateProfile(ctx, p)
}

// ListProfiles returns all profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]Profile, error) {
	return s.store.ListProfiles(ctx)
}

// ResolveProfile maps an identity to its profile.
func (s *Service) ResolveProfile(ctx context.Context, id string) (*Profile, error) {
	if id == "" {
		return nil, errors.New("profile id required")
	}
	return s.store.GetProfile(ctx, id)
}

// Authenticate resolves a profile by id or email and rejects paused ones.
// The role on the record is trusted as-is; identity verification happens
// upstream at the identity provider.
func (s *Service) Authenticate(ctx context.Context, idOrEmail string) (*Profile, error) {
	if idOrEmail == "" {
		return nil, errors.New("identity required")
	}
	p, err := s.store.GetProfile(ctx, idOrEmail)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p, err = s.store.GetProfileByEmail(ctx, idOrEmail)
		if err != nil {
			return nil, err
		}
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status == StatusPaused {
		return nil, ErrProfilePaused
	}
	return p, nil
}

// SaveRefreshToken persists a refresh token for later rotation.
func (s *Service) SaveRefreshToken(ctx context.Context, profileID, token string, expiresAt time.Time) error {
	return s.store.SaveRefreshToken(ctx, profileID, token, expiresAt)
}

// RotateRefreshToken validates and revokes a refresh token, returning the
// owning profile. Unknown, revoked and expired tokens return ErrNotFound.
func (s *Service) RotateRefreshToken(ctx context.Context, token string) (*Profile, error) {
	profileID, err := s.store.RefreshTokenProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	if profileID == "" {
		return nil, ErrNotFound
	}
	if err := s.store.RevokeRefreshToken(ctx, token); err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status == StatusPaused {
		return nil, ErrProfilePaused
	}
	return p, nil
}
