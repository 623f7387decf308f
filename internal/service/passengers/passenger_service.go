package passengers

import (
	"context"
	"strings"

	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/repository"
)

type PassengerUseCase interface {
	Save(ctx context.Context, userID int64, p domain.Passenger) (*domain.Passenger, error)
	List(ctx context.Context, userID int64) ([]domain.Passenger, error)
	Get(ctx context.Context, id int64, requester *int64) (*domain.Passenger, error)
}

type PassengerService struct {
	repo  repository.PassengerRepository
	clock clock.Clock
}

func NewPassengerService(repo repository.PassengerRepository, c clock.Clock) *PassengerService {
	if c == nil {
		c = clock.Real()
	}
	return &PassengerService{repo: repo, clock: c}
}

// Save stores a passenger profile for userID. A profile with the same
// document number is updated in place.
func (s *PassengerService) Save(ctx context.Context, userID int64, p domain.Passenger) (*domain.Passenger, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user is required to save passengers")
	}
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.DocumentNumber = strings.TrimSpace(p.DocumentNumber)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	owner := userID
	p.UserID = &owner
	p.UpdatedAt = now

	if p.DocumentNumber != "" {
		existing, err := s.repo.FindByDocument(ctx, userID, p.DocumentNumber)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, &p); err != nil {
				return nil, err
			}
			return &p, nil
		}
	}

	p.ID = 0
	p.CreatedAt = now
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PassengerService) List(ctx context.Context, userID int64) ([]domain.Passenger, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get hides passengers owned by other users behind NotFound.
func (s *PassengerService) Get(ctx context.Context, id int64, requester *int64) (*domain.Passenger, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != nil && !p.OwnedBy(requester) {
		return nil, domain.NewNotFound("passenger", id)
	}
	return p, nil
}

var _ PassengerUseCase = (*PassengerService)(nil)
