package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ftwrp/companion/internal/shared"
)

var (
	ErrNotFound          = errors.New("report not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTooManyOpen       = errors.New("too many open reports")
	ErrReportClosed      = errors.New("report is closed")
)

// maxOpenPerPlayer caps concurrent open reports to keep the queue sane.
const maxOpenPerPlayer = 3

// Store defines persistence operations used by the service.
type Store interface {
	List(ctx context.Context, filter ListFilter, page shared.Pagination) ([]Report, int, error)
	Get(ctx context.Context, id int64) (*Report, error)
	Create(ctx context.Context, rep Report) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status, closedAt *time.Time) error
	Claim(ctx context.Context, id int64, staffID string) error
	Messages(ctx context.Context, reportID int64) ([]Message, error)
	AddMessage(ctx context.Context, msg Message) (int64, error)
	CountOpenByAuthor(ctx context.Context, authorID string) (int, error)
}

// Service provides business logic for support reports.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a report service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns reports matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Pagination) ([]Report, int, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown status %q", filter.Status)
	}
	return s.store.List(ctx, filter, page)
}

// ListForPlayer returns only the player's own reports.
func (s *Service) ListForPlayer(ctx context.Context, authorID string, page shared.Pagination) ([]Report, int, error) {
	return s.store.List(ctx, ListFilter{AuthorID: authorID}, page)
}

// Get fetches a report with its message thread.
func (s *Service) Get(ctx context.Context, id int64) (*Report, []Message, error) {
	rep, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rep, msgs, nil
}

// Create opens a new report on behalf of a player.
func (s *Service) Create(ctx context.Context, authorID, subject, body string) (*Report, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return nil, fmt.Errorf("subject and body are required")
	}

	open, err := s.store.CountOpenByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("count open reports: %w", err)
	}
	if open >= maxOpenPerPlayer {
		return nil, ErrTooManyOpen
	}

	rep := Report{
		AuthorID: authorID,
		Subject:  subject,
		Body:     body,
		Status:   StatusOpen,
	}
	id, err := s.store.Create(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	rep.ID = id
	rep.CreatedAt = s.now()
	rep.UpdatedAt = rep.CreatedAt
	return &rep, nil
}

// Claim assigns the report to a staff member and marks it in progress.
func (s *Service) Claim(ctx context.Context, id int64, staffID string) (*Report, error) {
	rep, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status == StatusClosed {
		return nil, ErrReportClosed
	}
	if err := s.store.Claim(ctx, id, staffID); err != nil {
		return nil, err
	}
	if rep.Status == StatusOpen {
		if err := s.store.UpdateStatus(ctx, id, StatusInProgress, nil); err != nil {
			return nil, err
		}
	}
	return s.store.Get(ctx, id)
}

// SetStatus transitions the report, enforcing the lifecycle rules.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) (*Report, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	rep, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status == status {
		return rep, nil
	}
	if !canTransition(rep.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rep.Status, status)
	}
	var closedAt *time.Time
	if status == StatusClosed {
		t := s.now().UTC()
		closedAt = &t
	}
	if err := s.store.UpdateStatus(ctx, id, status, closedAt); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Reply appends a message to the report thread. Players may only write to
// their own reports; staff replies to a fresh report claim it implicitly.
func (s *Service) Reply(ctx context.Context, id int64, authorID string, fromStaff bool, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body is required")
	}
	rep, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.Status == StatusClosed {
		return nil, ErrReportClosed
	}
	if !fromStaff && rep.AuthorID != authorID {
		return nil, ErrNotFound
	}

	msg := Message{ReportID: id, AuthorID: authorID, FromStaff: fromStaff, Body: body}
	msgID, err := s.store.AddMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	msg.ID = msgID
	msg.CreatedAt = s.now()

	if fromStaff && rep.ClaimedBy == nil {
		if err := s.store.Claim(ctx, id, authorID); err != nil {
			return nil, err
		}
		if rep.Status == StatusOpen {
			if err := s.store.UpdateStatus(ctx, id, StatusInProgress, nil); err != nil {
				return nil, err
			}
		}
	}
	return &msg, nil
}
