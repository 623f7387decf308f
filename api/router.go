package api

import (
	"net/http"

	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/Domenick1991/skyplan/internal/service/booking"
	"github.com/Domenick1991/skyplan/internal/service/flights"
	"github.com/Domenick1991/skyplan/internal/service/passengers"
	"github.com/Domenick1991/skyplan/internal/service/payment"
	"github.com/Domenick1991/skyplan/internal/service/seats"
	"github.com/Domenick1991/skyplan/internal/service/tickets"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Flights    flights.FlightUseCase
	Seats      seats.SeatUseCase
	Bookings   booking.BookingUseCase
	Payments   payment.PaymentUseCase
	Tickets    tickets.TicketUseCase
	Passengers passengers.PassengerUseCase
}

type RouterConfig struct {
	JWTSecret   string
	CORSOrigins []string
	// GatewaySecret authenticates payment callbacks; empty disables them.
	GatewaySecret string
	// RateLimit disables limiting when nil.
	RateLimit *ClientLimiter
	Log       *logrus.Logger
}

// NewRouter mounts the JSON API under /api.
func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	log := logging.OrDiscard(cfg.Log)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), CORS(cfg.CORSOrigins), Identity(cfg.JWTSecret))
	if cfg.RateLimit != nil {
		router.Use(cfg.RateLimit.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})

	api := router.Group("/api")
	flightsHandler := NewFlightHandler(svc.Flights, svc.Seats)
	flightsHandler.Register(api.Group("/flights"))
	NewSeatHandler(svc.Seats).Register(api.Group("/seats", RequireUser()))

	bookings := api.Group("/bookings")
	NewBookingHandler(svc.Bookings).Register(bookings)
	paymentsHandler := NewPaymentHandler(svc.Payments, cfg.GatewaySecret)
	paymentsHandler.Register(api.Group("/payments"))
	paymentsHandler.RegisterBookingRoutes(bookings)
	ticketsHandler := NewTicketHandler(svc.Tickets)
	ticketsHandler.Register(api.Group("/tickets"))
	ticketsHandler.RegisterBookingRoutes(bookings)

	NewPassengerHandler(svc.Passengers).Register(api.Group("/passengers"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
	})
	return router
}
