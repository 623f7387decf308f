package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) ReserveSeat(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

func (m *MockFlightRepository) ReleaseSeat(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	day := time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)
	return []domain.Flight{
		{ID: 1, FlightNumber: "SP101", FromAirport: "HAN", ToAirport: "SGN", DepartureTime: day, BasePrice: 1200000},
		{ID: 2, FlightNumber: "SP102", FromAirport: "SGN", ToAirport: "HAN", DepartureTime: day.Add(6 * time.Hour), BasePrice: 1150000},
		{ID: 3, FlightNumber: "SP201", FromAirport: "HAN", ToAirport: "DAD", DepartureTime: day.AddDate(0, 0, 1), BasePrice: 900000},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)

	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, nil)
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil)
	mockCache.On("SetFlights", ctx, flights).Return(nil)

	result, err := service.List(ctx, domain.FlightFilter{})

	require.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_List_CacheHitFilters(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)

	ctx := context.Background()
	mockCache.On("GetFlights", ctx).Return(sampleFlights(), nil)

	result, err := service.List(ctx, domain.FlightFilter{
		FromAirport: "han",
		Date:        time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "SP101", result[0].FlightNumber)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestFlightService_List_CacheErrorFallsBack(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)

	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, errors.New("redis down"))
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil)
	mockCache.On("SetFlights", ctx, flights).Return(errors.New("redis down"))

	result, err := service.List(ctx, domain.FlightFilter{ToAirport: "HAN"})

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(2), result[0].ID)
}

func TestFlightService_List_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)

	ctx := context.Background()
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(nil, errors.New("db error"))

	result, err := service.List(ctx, domain.FlightFilter{})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestFlightService_GetByID(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)

	ctx := context.Background()
	flight := &domain.Flight{ID: 7, FlightNumber: "SP777"}
	mockRepo.On("GetByID", ctx, int64(7)).Return(flight, nil)
	mockRepo.On("GetByID", ctx, int64(8)).Return(nil, domain.NewNotFound("flight", 8))

	got, err := service.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, flight, got)

	_, err = service.GetByID(ctx, 8)
	assert.True(t, domain.IsNotFound(err))
}
