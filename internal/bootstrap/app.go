package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/skyplan/api"
	"github.com/Domenick1991/skyplan/config"
	"github.com/Domenick1991/skyplan/internal/amqp"
	"github.com/Domenick1991/skyplan/internal/cache"
	"github.com/Domenick1991/skyplan/internal/clock"
	"github.com/Domenick1991/skyplan/internal/codes"
	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/gateway"
	"github.com/Domenick1991/skyplan/internal/kafka"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/notify"
	"github.com/Domenick1991/skyplan/internal/pricing"
	"github.com/Domenick1991/skyplan/internal/repository"
	"github.com/Domenick1991/skyplan/internal/repository/memory"
	"github.com/Domenick1991/skyplan/internal/service/booking"
	"github.com/Domenick1991/skyplan/internal/service/flights"
	"github.com/Domenick1991/skyplan/internal/service/passengers"
	"github.com/Domenick1991/skyplan/internal/service/payment"
	"github.com/Domenick1991/skyplan/internal/service/seats"
	"github.com/Domenick1991/skyplan/internal/service/tickets"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const publishRetries = 3

// App holds the wired services shared by the API server and the worker.
type App struct {
	Config     *config.Config
	Log        *logrus.Logger
	Repos      repository.Repositories
	Flights    *flights.FlightService
	Seats      *seats.SeatService
	Bookings   *booking.BookingService
	Payments   *payment.PaymentService
	Tickets    *tickets.TicketService
	Passengers *passengers.PassengerService

	dispatcher *notify.Dispatcher
	closers    []func() error
}

func NewApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: logging.OrDiscard(log)}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) (err error) {
	cfg := a.Config

	if a.Repos, err = a.openStorage(ctx); err != nil {
		return err
	}

	var (
		flightCache flights.FlightCache
		seatOpts    = []seats.SeatServiceOption{
			seats.WithLayout(cfg.Layout.SeatLayout()),
			seats.WithHoldLimits(cfg.Booking.HoldDefault(), cfg.Booking.HoldMax()),
			seats.WithLogger(a.Log),
		}
	)
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTL())
		a.closers = append(a.closers, redisCache.Close)
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		if err := redisCache.InvalidateFlights(ctx); err != nil {
			a.Log.WithError(err).Warn("drop cached flight list")
		}
		flightCache = redisCache
		seatOpts = append(seatOpts, seats.WithLocker(redisCache))
	}

	notifier, err := a.openNotifier(ctx)
	if err != nil {
		return err
	}

	gen := codes.NewGenerator(cfg.Booking.BookingCodePrefix, cfg.Booking.TicketCodePrefix)
	clk := clock.Real()

	a.Flights = flights.NewFlightService(a.Repos.Flights, flightCache, a.Log)
	a.Seats = seats.NewSeatService(a.Repos.Seats, a.Repos.Flights, a.Repos.Tx, seatOpts...)
	a.Passengers = passengers.NewPassengerService(a.Repos.Passengers, clk)
	a.Tickets = tickets.NewTicketService(a.Repos, gen,
		tickets.WithClock(clk),
		tickets.WithNotifier(notifier),
		tickets.WithLogger(a.Log),
		tickets.WithMaxCodeAttempts(cfg.Booking.MaxCodeAttempts),
	)
	a.Bookings = booking.NewBookingService(a.Repos, pricing.NewCalculator(cfg.Booking.Pricing()), gen,
		booking.WithClock(clk),
		booking.WithNotifier(notifier),
		booking.WithLogger(a.Log),
		booking.WithPendingTTL(cfg.Booking.PendingTTL()),
		booking.WithSeatHold(cfg.Booking.HoldMax()),
		booking.WithMaxCodeAttempts(cfg.Booking.MaxCodeAttempts),
		booking.WithRejectTotalMismatch(cfg.Booking.RejectTotalMismatch),
	)
	a.Payments = payment.NewPaymentService(a.Repos,
		gateway.NewClient(cfg.Payments.GatewayURL, cfg.Payments.ReturnURL, cfg.Payments.Provider),
		a.Tickets,
		payment.WithClock(clk),
		payment.WithNotifier(notifier),
		payment.WithLogger(a.Log),
	)
	return nil
}

func (a *App) openStorage(ctx context.Context) (repository.Repositories, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		layout := cfg.Layout.SeatLayout()
		for _, sf := range cfg.Storage.SeedFlights {
			f := store.AddFlight(domain.Flight{
				FlightNumber:  sf.FlightNumber,
				Airline:       sf.Airline,
				FromAirport:   sf.FromAirport,
				ToAirport:     sf.ToAirport,
				DepartureTime: sf.DepartureTime,
				ArrivalTime:   sf.ArrivalTime,
				TotalSeats:    layout.Rows * len(layout.Columns),
				BasePrice:     sf.BasePrice,
			})
			a.Log.WithFields(logrus.Fields{"flight_id": f.ID, "flight_number": f.FlightNumber}).Debug("seeded flight")
		}
		a.Log.WithField("flights", len(cfg.Storage.SeedFlights)).Info("using in-memory storage")
		return store.Repositories(), nil
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return repository.Repositories{}, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return repository.Repositories{}, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				return repository.Repositories{}, err
			}
			a.Log.Info("database schema applied")
		}
		return repository.NewPGRepositories(pool), nil
	}
}

func (a *App) openNotifier(ctx context.Context) (notify.Notifier, error) {
	cfg := a.Config
	switch cfg.Notifications.Driver {
	case "kafka":
		producer := kafka.NewProducer(cfg.Kafka.Brokers, a.Log)
		a.closers = append(a.closers, producer.Close)
		if err := producer.CheckConnection(ctx); err != nil {
			a.Log.WithError(err).Warn("kafka not reachable yet, events will be retried per publish")
		}
		publish := notify.PublisherFunc(func(ctx context.Context, topic, key string, payload any) error {
			return producer.PublishWithRetry(ctx, topic, key, payload, publishRetries)
		})
		a.dispatcher = notify.NewDispatcher(publish, []string{cfg.Kafka.BookingTopic, cfg.Kafka.NotificationsTopic}, a.Log)
	case "amqp":
		publisher, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)
		a.dispatcher = notify.NewDispatcher(publisher, []string{cfg.AMQP.Queue}, a.Log)
	default:
		return notify.Noop{}, nil
	}
	a.Log.WithField("driver", cfg.Notifications.Driver).Info("notifications enabled")
	return a.dispatcher, nil
}

func (a *App) Services() api.Services {
	return api.Services{
		Flights:    a.Flights,
		Seats:      a.Seats,
		Bookings:   a.Bookings,
		Payments:   a.Payments,
		Tickets:    a.Tickets,
		Passengers: a.Passengers,
	}
}

// Router builds the gin API with the configured middleware.
func (a *App) Router() *gin.Engine {
	var limiter *api.ClientLimiter
	if a.Config.RateLimit.Enabled {
		limiter = api.NewClientLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst)
	}
	return api.NewRouter(a.Services(), api.RouterConfig{
		JWTSecret:     a.Config.Auth.JWTSecret,
		CORSOrigins:   a.Config.HTTP.CORSOrigins,
		GatewaySecret: a.Config.Payments.CallbackSecret,
		RateLimit:     limiter,
		Log:           a.Log,
	})
}

// Close waits for in-flight notifications, then releases connections in
// reverse order of opening.
func (a *App) Close() error {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
