// Package pricing computes the authoritative booking total.
package pricing

import (
	"math"

	"github.com/Domenick1991/skyplan/internal/domain"
)

type Config struct {
	FareMultipliers map[domain.FareClass]float64
	TaxPercent      float64
	Extras          map[string]int64
	Tolerance       int64
}

func DefaultConfig() Config {
	return Config{
		FareMultipliers: map[domain.FareClass]float64{
			domain.FareClassEconomy:        1.0,
			domain.FareClassPremiumEconomy: 1.4,
			domain.FareClassBusiness:       2.5,
		},
		TaxPercent: 10,
		Extras: map[string]int64{
			"meal":       150000,
			"baggage_xl": 300000,
			"taxi":       250000,
		},
		Tolerance: 1000,
	}
}

type Extra struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

type Request struct {
	OutboundBase int64
	InboundBase  int64
	FareClass    domain.FareClass
	Passengers   int
	Extras       []Extra
}

type Quote struct {
	TicketAmount int64 `json:"ticket_amount"`
	ExtrasAmount int64 `json:"extras_amount"`
	TaxAmount    int64 `json:"tax_amount"`
	Total        int64 `json:"total"`
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Quote prices a booking: fares for every leg times the fare-class multiplier
// per passenger, plus extras, plus tax on the ticket amount only.
func (c *Calculator) Quote(req Request) (Quote, error) {
	if req.Passengers <= 0 {
		return Quote{}, domain.NewValidationError("at least one passenger is required")
	}
	mult, ok := c.cfg.FareMultipliers[req.FareClass]
	if !ok {
		return Quote{}, domain.NewValidationError("unknown fare class %q", req.FareClass)
	}

	perPassenger := int64(math.Round(float64(req.OutboundBase+req.InboundBase) * mult))
	q := Quote{TicketAmount: perPassenger * int64(req.Passengers)}

	for _, e := range req.Extras {
		price, ok := c.cfg.Extras[e.Code]
		if !ok {
			return Quote{}, domain.NewValidationError("unknown extra %q", e.Code)
		}
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}
		q.ExtrasAmount += price * int64(qty)
	}

	q.TaxAmount = int64(math.Round(float64(q.TicketAmount) * c.cfg.TaxPercent / 100))
	q.Total = q.TicketAmount + q.ExtrasAmount + q.TaxAmount
	return q, nil
}

// Reconcile compares a client-claimed total with the computed one. A zero
// claim never matches, so the computed total is always used for it.
func (c *Calculator) Reconcile(claim int64, q Quote) (matches bool) {
	if claim <= 0 {
		return false
	}
	diff := claim - q.Total
	if diff < 0 {
		diff = -diff
	}
	return diff <= c.cfg.Tolerance
}
