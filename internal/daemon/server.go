package daemon

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/handlers"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/middleware"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ServerLogDomain   = "server daemon"

	APIVersionedNamespace = "/api/v1"
)

type HubServer struct {
	runtime *Runtime
	server  *http.Server
}

type Server interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Server = (*HubServer)(nil)

// NewHubServer loads the connection of every live tenant and builds the
// HTTP server on rt.
func NewHubServer(ctx context.Context, rt *Runtime) (*HubServer, error) {
	_, err := rt.LoadTenants(ctx)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "loading tenant connections")
	}

	handler, err := NewHandler(rt)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "creating http handler")
	}

	return &HubServer{
		runtime: rt,
		server: &http.Server{
			Addr:              rt.Config.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: ReadHeaderTimeout,
			ReadTimeout:       ReadTimeout,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       IdleTimeout,
		},
	}, nil
}

func (s *HubServer) Close(ctx context.Context) error {
	shutdownCtx, shutdownRelease := context.WithTimeout(ctx, s.runtime.Config.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	s.runtime.Close(ctx)

	log.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}

func (s *HubServer) Start(ctx context.Context) error {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server encountered an error", err)

			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()

	return nil
}

// NewHandler registers the API routes of rt and wraps them in the
// middleware chain.
func NewHandler(rt *Runtime) (http.Handler, error) {
	extractor, err := authz.NewJWTExtractorFromSourceRef(rt.Config.Tenancy.SigningKey)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "loading signing key")
	}

	memberships := authz.NewRepoMembershipProvider(rt.Repo)

	tenantMiddleware, err := middleware.TenantMiddleware(rt.Config.Tenancy, rt.Manager.Tenants)
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "creating tenant middleware")
	}

	var gateOpts []middleware.GateOption
	if rt.Audit != nil {
		gateOpts = append(gateOpts, middleware.WithDenialAuditor(rt.Audit))
	}

	company := handlers.NewCompany(rt.Manager)

	mux := NewServeMux(APIVersionedNamespace, memberships)
	mux.HandleFunc("GET "+APIVersionedNamespace+"/company/info", company.Info)
	mux.HandleFunc("PATCH "+APIVersionedNamespace+"/company/controls/{id}", company.CustomizeControl)
	mux.HandleFunc("GET "+APIVersionedNamespace+"/company/frameworks/{id}/verify", company.VerifyFramework)
	mux.HandleFunc("GET /health/", handlers.Health(rt.HealthChecks))

	// Middlewares run in a FILO. Last middleware on the slice is the first one ran
	// First middleware to run should be the InjectRequestID
	chain := []func(http.Handler) http.Handler{
		middleware.AuthorizationGate(extractor, memberships, gateOpts...),
		tenantMiddleware,
		middleware.PanicRecoveryMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.InjectRequestID(),
	}

	var handler http.Handler = mux
	for _, mw := range chain {
		handler = mw(handler)
	}

	return handler, nil
}
