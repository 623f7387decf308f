package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/skyplan/internal/domain"
	"github.com/Domenick1991/skyplan/internal/pricing"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	Database      DatabaseConfig      `yaml:"database"`
	Storage       StorageConfig       `yaml:"storage"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	AMQP          AMQPConfig          `yaml:"amqp"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Booking       BookingConfig       `yaml:"booking"`
	Layout        LayoutConfig        `yaml:"layout"`
	Worker        WorkerConfig        `yaml:"worker"`
	Log           LogConfig           `yaml:"log"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address"`
	SwaggerDir  string   `yaml:"swagger_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	URL      string `yaml:"dsn"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type StorageConfig struct {
	Driver      string       `yaml:"driver"`
	SeedFlights []SeedFlight `yaml:"seed_flights"`
}

// SeedFlight is loaded into the memory store at startup.
type SeedFlight struct {
	FlightNumber  string    `yaml:"flight_number"`
	Airline       string    `yaml:"airline"`
	FromAirport   string    `yaml:"from"`
	ToAirport     string    `yaml:"to"`
	DepartureTime time.Time `yaml:"departure_time"`
	ArrivalTime   time.Time `yaml:"arrival_time"`
	BasePrice     int64     `yaml:"base_price"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type NotificationsConfig struct {
	Driver string `yaml:"driver"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type PaymentsConfig struct {
	Provider   string `yaml:"provider"`
	GatewayURL string `yaml:"gateway_url"`
	ReturnURL  string `yaml:"return_url"`
	// CallbackSecret is sent by the gateway in X-Gateway-Secret.
	CallbackSecret string `yaml:"callback_secret"`
}

type BookingConfig struct {
	HoldDefaultMinutes     int                `yaml:"hold_default_minutes"`
	HoldMaxMinutes         int                `yaml:"hold_max_minutes"`
	PendingTTLMinutes      int                `yaml:"pending_ttl_minutes"`
	FlightsCacheTTLSeconds int                `yaml:"flights_cache_ttl_seconds"`
	TotalTolerance         int64              `yaml:"total_tolerance"`
	RejectTotalMismatch    bool               `yaml:"reject_total_mismatch"`
	TaxPercent             float64            `yaml:"tax_percent"`
	FareMultipliers        map[string]float64 `yaml:"fare_multipliers"`
	Extras                 map[string]int64   `yaml:"extras"`
	BookingCodePrefix      string             `yaml:"booking_code_prefix"`
	TicketCodePrefix       string             `yaml:"ticket_code_prefix"`
	MaxCodeAttempts        int                `yaml:"max_code_attempts"`
}

func (b BookingConfig) HoldDefault() time.Duration {
	return time.Duration(b.HoldDefaultMinutes) * time.Minute
}

func (b BookingConfig) HoldMax() time.Duration {
	return time.Duration(b.HoldMaxMinutes) * time.Minute
}

func (b BookingConfig) PendingTTL() time.Duration {
	return time.Duration(b.PendingTTLMinutes) * time.Minute
}

func (b BookingConfig) FlightsCacheTTL() time.Duration {
	return time.Duration(b.FlightsCacheTTLSeconds) * time.Second
}

func (b BookingConfig) Pricing() pricing.Config {
	cfg := pricing.Config{
		FareMultipliers: make(map[domain.FareClass]float64, len(b.FareMultipliers)),
		TaxPercent:      b.TaxPercent,
		Extras:          b.Extras,
		Tolerance:       b.TotalTolerance,
	}
	for k, v := range b.FareMultipliers {
		cfg.FareMultipliers[domain.FareClass(k)] = v
	}
	return cfg
}

type LayoutConfig struct {
	Rows              int             `yaml:"rows"`
	Columns           []string        `yaml:"columns"`
	BusinessRows      domain.RowRange `yaml:"business_rows"`
	PremiumRows       domain.RowRange `yaml:"premium_rows"`
	BusinessSurcharge int64           `yaml:"business_surcharge"`
	PremiumSurcharge  int64           `yaml:"premium_surcharge"`
	WindowSurcharge   int64           `yaml:"window_surcharge"`
}

func (l LayoutConfig) SeatLayout() domain.SeatLayout {
	return domain.SeatLayout{
		Rows:              l.Rows,
		Columns:           l.Columns,
		BusinessRows:      l.BusinessRows,
		PremiumRows:       l.PremiumRows,
		BusinessSurcharge: l.BusinessSurcharge,
		PremiumSurcharge:  l.PremiumSurcharge,
		WindowSurcharge:   l.WindowSurcharge,
	}
}

type WorkerConfig struct {
	HoldSweepSeconds       int `yaml:"hold_sweep_seconds"`
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads an optional .env file, the YAML file at path and the
// environment overrides, then applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("PAYMENTS_CALLBACK_SECRET"); v != "" {
		c.Payments.CallbackSecret = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		c.HTTP.Address = v
	}
}

func (c *Config) applyDefaults() {
	setDefault(&c.HTTP.Address, ":8080")
	setDefault(&c.GRPC.Address, ":9090")
	setDefault(&c.Storage.Driver, "postgres")
	setDefault(&c.Notifications.Driver, "none")
	setDefault(&c.Kafka.BookingTopic, "booking-events")
	setDefault(&c.Kafka.NotificationsTopic, "booking-notifications")
	setDefault(&c.Kafka.GroupID, "skyplan-worker")
	setDefault(&c.AMQP.Queue, "booking.notifications")
	setDefault(&c.Payments.Provider, "VNPAY")
	setDefault(&c.Log.Level, "info")
	setDefault(&c.Log.Format, "text")

	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}

	b := &c.Booking
	if b.HoldDefaultMinutes == 0 {
		b.HoldDefaultMinutes = 5
	}
	if b.HoldMaxMinutes == 0 {
		b.HoldMaxMinutes = 15
	}
	if b.PendingTTLMinutes == 0 {
		b.PendingTTLMinutes = 30
	}
	if b.FlightsCacheTTLSeconds == 0 {
		b.FlightsCacheTTLSeconds = 60
	}
	if b.MaxCodeAttempts == 0 {
		b.MaxCodeAttempts = 10
	}
	defaults := pricing.DefaultConfig()
	if b.TotalTolerance == 0 {
		b.TotalTolerance = defaults.Tolerance
	}
	if b.TaxPercent == 0 {
		b.TaxPercent = defaults.TaxPercent
	}
	if len(b.FareMultipliers) == 0 {
		b.FareMultipliers = make(map[string]float64, len(defaults.FareMultipliers))
		for k, v := range defaults.FareMultipliers {
			b.FareMultipliers[string(k)] = v
		}
	}
	if len(b.Extras) == 0 {
		b.Extras = defaults.Extras
	}

	l := &c.Layout
	layout := domain.DefaultSeatLayout()
	if l.Rows == 0 {
		l.Rows = layout.Rows
	}
	if len(l.Columns) == 0 {
		l.Columns = layout.Columns
	}
	if l.BusinessRows == (domain.RowRange{}) {
		l.BusinessRows = layout.BusinessRows
	}
	if l.PremiumRows == (domain.RowRange{}) {
		l.PremiumRows = layout.PremiumRows
	}
	if l.BusinessSurcharge == 0 {
		l.BusinessSurcharge = layout.BusinessSurcharge
	}
	if l.PremiumSurcharge == 0 {
		l.PremiumSurcharge = layout.PremiumSurcharge
	}
	if l.WindowSurcharge == 0 {
		l.WindowSurcharge = layout.WindowSurcharge
	}

	if c.Worker.HoldSweepSeconds == 0 {
		c.Worker.HoldSweepSeconds = 60
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 1
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Notifications.Driver {
	case "kafka", "amqp", "none":
	default:
		return fmt.Errorf("unknown notifications driver %q", c.Notifications.Driver)
	}
	if c.Notifications.Driver == "kafka" && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka notifications need at least one broker")
	}
	if c.Notifications.Driver == "amqp" && c.AMQP.URL == "" {
		return errors.New("amqp notifications need amqp.url")
	}
	if c.Booking.HoldDefaultMinutes <= 0 || c.Booking.HoldMaxMinutes <= 0 {
		return fmt.Errorf("booking hold minutes must be positive, got default %d max %d", c.Booking.HoldDefaultMinutes, c.Booking.HoldMaxMinutes)
	}
	if c.Booking.PendingTTLMinutes <= 0 {
		return fmt.Errorf("booking.pending_ttl_minutes must be positive, got %d", c.Booking.PendingTTLMinutes)
	}
	if c.Worker.HoldSweepSeconds <= 0 || c.Worker.ExpirationSweepMinutes <= 0 {
		return fmt.Errorf("worker sweep intervals must be positive, got hold_sweep_seconds %d expiration_sweep_minutes %d",
			c.Worker.HoldSweepSeconds, c.Worker.ExpirationSweepMinutes)
	}
	if c.Booking.HoldMaxMinutes > 15 {
		return fmt.Errorf("booking.hold_max_minutes must be at most 15, got %d", c.Booking.HoldMaxMinutes)
	}
	if c.Booking.HoldDefaultMinutes > c.Booking.HoldMaxMinutes {
		return fmt.Errorf("booking.hold_default_minutes (%d) exceeds hold_max_minutes (%d)", c.Booking.HoldDefaultMinutes, c.Booking.HoldMaxMinutes)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// DefaultPath is CONFIG_PATH or config.yaml.
func DefaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
