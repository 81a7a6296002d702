package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ftwrp/companion/internal/shared"
)

var (
	ErrNotFound        = errors.New("application not found")
	ErrAlreadyPending  = errors.New("an application is already pending")
	ErrAlreadyReviewed = errors.New("application already reviewed")
)

// Store defines persistence operations used by the service.
type Store interface {
	List(ctx context.Context, status Status, page shared.Pagination) ([]Application, int, error)
	Get(ctx context.Context, id int64) (*Application, error)
	GetPendingByApplicant(ctx context.Context, applicantID string) (*Application, error)
	Create(ctx context.Context, app Application) (int64, error)
	Review(ctx context.Context, id int64, status Status, reviewerID, note string, at time.Time) error
}

// Service provides business logic for whitelist applications.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs an application service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns applications for review.
func (s *Service) List(ctx context.Context, status Status, page shared.Pagination) ([]Application, int, error) {
	return s.store.List(ctx, status, page)
}

// Get fetches a single application.
func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	return s.store.Get(ctx, id)
}

// Own returns the applicant's pending application, if one exists.
func (s *Service) Own(ctx context.Context, applicantID string) (*Application, error) {
	return s.store.GetPendingByApplicant(ctx, applicantID)
}

// Submit creates a new pending application. Each user may have at most one
// application awaiting review.
func (s *Service) Submit(ctx context.Context, applicantID, characterName, backstory string) (*Application, error) {
	characterName = strings.TrimSpace(characterName)
	backstory = strings.TrimSpace(backstory)
	if characterName == "" || backstory == "" {
		return nil, fmt.Errorf("character name and backstory are required")
	}

	existing, err := s.store.GetPendingByApplicant(ctx, applicantID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check pending application: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyPending
	}

	app := Application{
		ApplicantID:   applicantID,
		CharacterName: characterName,
		Backstory:     backstory,
		Status:        StatusPending,
	}
	id, err := s.store.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	app.ID = id
	app.CreatedAt = s.now()
	return &app, nil
}

// Approve marks a pending application as accepted.
func (s *Service) Approve(ctx context.Context, id int64, reviewerID, note string) (*Application, error) {
	return s.review(ctx, id, StatusApproved, reviewerID, note)
}

// Deny marks a pending application as rejected.
func (s *Service) Deny(ctx context.Context, id int64, reviewerID, note string) (*Application, error) {
	return s.review(ctx, id, StatusDenied, reviewerID, note)
}

func (s *Service) review(ctx context.Context, id int64, status Status, reviewerID, note string) (*Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, ErrAlreadyReviewed
	}
	if err := s.store.Review(ctx, id, status, reviewerID, strings.TrimSpace(note), s.now()); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}
