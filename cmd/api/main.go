package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"crewlink.aero/internal/auth"
	"crewlink.aero/internal/config"
	"crewlink.aero/internal/crypto"
	"crewlink.aero/internal/httpapi"
	"crewlink.aero/internal/obs"
	"crewlink.aero/internal/resource"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load(os.Getenv("CREWLINK_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Database is optional: without a DSN everything runs on the
	// in-memory stores.
	var db *sql.DB
	if dsn := cfg.Database.DSN; dsn != "" {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var crew auth.CrewStore = auth.NewMemoryStore()
	if db != nil {
		crew = auth.NewPGStore(db)
	}

	accessSecret := cfg.Auth.AccessSecret
	if accessSecret == "" {
		accessSecret = randomSecret()
		log.Printf("WARNING: CREWLINK_ACCESS_SECRET not set, generated an ephemeral signing secret; tokens will not survive restarts")
	}

	tokenOpts := []auth.TokenOption{
		auth.WithAccessTTL(cfg.AccessTTL()),
		auth.WithRefreshTTL(cfg.RefreshTTL()),
	}
	if cfg.Auth.RefreshSecret != "" {
		tokenOpts = append(tokenOpts, auth.WithRefreshSecret(cfg.Auth.RefreshSecret))
	}
	if cfg.Auth.Issuer != "" {
		tokenOpts = append(tokenOpts, auth.WithTokenIssuer(cfg.Auth.Issuer))
	}
	if cfg.Auth.Audience != "" {
		tokenOpts = append(tokenOpts, auth.WithTokenAudience(cfg.Auth.Audience))
	}
	if cfg.Auth.Airline != "" {
		tokenOpts = append(tokenOpts, auth.WithAirline(cfg.Auth.Airline))
	}
	tokens, err := auth.NewTokenService(accessSecret, auth.NewBlacklist(), tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	if tokens.SharedSecrets() {
		log.Printf("WARNING: refresh tokens share the access signing secret; set CREWLINK_REFRESH_SECRET")
	}

	authn, err := auth.NewAuthenticator(crew, tokens,
		auth.WithMaxFailures(cfg.Auth.MaxFailures),
		auth.WithLockDuration(cfg.LockDuration()),
	)
	if err != nil {
		log.Fatalf("authenticator: %v", err)
	}

	gatewayOpts := []resource.GatewayOption{}
	if cfg.Crypto.MasterKey != "" {
		ring, err := crypto.NewKeyRing(cfg.Crypto.MasterKey)
		if err != nil {
			log.Fatalf("master key: %v", err)
		}
		gatewayOpts = append(gatewayOpts, resource.WithKeyRing(ring))
	} else {
		log.Printf("WARNING: CREWLINK_MASTER_KEY not set, data keys are returned to clients")
	}
	gateway, err := resource.NewGateway(
		resource.NewMemoryMessageStore(),
		resource.NewMemoryDocumentStore(),
		crew,
		gatewayOpts...,
	)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}

	rp := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(authn, gateway, rp, version)

	handler := httpapi.RateLimit(api.Handler(), cfg.Server.RateBurst, cfg.Server.RatePerSecond)
	handler = httpapi.MaxBodyBytes(handler, cfg.Server.MaxBodyBytes)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting crewlink-api %s on %s", version, srv.Addr)

	var grpcSrv *grpc.Server
	if addr := cfg.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(rp))
		go func() {
			log.Printf("gRPC health on %s", addr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("entropy: %v", err)
	}
	return hex.EncodeToString(buf)
}
