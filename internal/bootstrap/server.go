package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/skyplan/config"
	"github.com/Domenick1991/skyplan/internal/logging"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	swaggerFile     = "skyplan.swagger.json"
	shutdownTimeout = 5 * time.Second
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	healthConn *grpc.ClientConn
	httpServer *http.Server
	log        *logrus.Logger
}

// Run starts the gRPC health server and the HTTP server (API, /healthz,
// swagger) and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, log *logrus.Logger) error {
	s, err := NewServers(cfg, api, log)
	if err != nil {
		return err
	}
	defer s.healthConn.Close()

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithFields(logrus.Fields{"http": cfg.HTTP.Address, "grpc": cfg.GRPC.Address}).Info("servers started")

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// NewServers builds both servers without listening.
func NewServers(cfg *config.Config, api http.Handler, log *logrus.Logger) (*Servers, error) {
	log = logging.OrDiscard(log)

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health %s: %w", cfg.GRPC.Address, err)
	}
	gw := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	handler := http.NewServeMux()
	handler.Handle("/healthz", gw)
	if cfg.HTTP.SwaggerDir != "" {
		doc := filepath.Join(cfg.HTTP.SwaggerDir, swaggerFile)
		handler.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, doc)
		})
		handler.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}
	handler.Handle("/", api)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		healthConn: conn,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

func (s *Servers) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown reports NOT_SERVING, drains HTTP, then stops gRPC.
func (s *Servers) Shutdown() error {
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.grpcServer.GracefulStop()
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.log.Info("servers stopped")
	return nil
}
