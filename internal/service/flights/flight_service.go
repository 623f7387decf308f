package flights

import (
	"context"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// FlightCache holds the unfiltered flight list. GetFlights returns nil on a miss.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   *logrus.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, log *logrus.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, log: logging.OrDiscard(log)}
}

// List serves searches from the cached full list when possible and filters
// it in process. Cache failures fall through to the repository.
func (s *FlightService) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Empty() {
		return all, nil
	}

	matched := make([]domain.Flight, 0, len(all))
	for _, f := range all {
		if filter.Match(f) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

func (s *FlightService) all(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.log.WithError(err).Warn("read flights cache")
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx, domain.FlightFilter{})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.WithError(err).Warn("write flights cache")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

var _ FlightUseCase = (*FlightService)(nil)
