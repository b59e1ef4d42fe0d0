package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicdesk/grievance-desk/internal/analytics"
	"github.com/civicdesk/grievance-desk/internal/classify"
	"github.com/civicdesk/grievance-desk/internal/config"
	"github.com/civicdesk/grievance-desk/internal/escalation"
	"github.com/civicdesk/grievance-desk/internal/inbox"
	"github.com/civicdesk/grievance-desk/internal/intake"
	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/lifecycle"
	"github.com/civicdesk/grievance-desk/internal/media"
	"github.com/civicdesk/grievance-desk/internal/model"
	"github.com/civicdesk/grievance-desk/internal/notify"
	"github.com/civicdesk/grievance-desk/internal/server"
	"github.com/civicdesk/grievance-desk/internal/store"
	"github.com/civicdesk/grievance-desk/internal/tracking"
)

func main() {
	if len(os.Args) > 1 {
		var sub func([]string) error
		switch os.Args[1] {
		case "token":
			sub = mintToken
		case "user":
			sub = addUser
		}
		if sub != nil {
			if err := sub(os.Args[2:]); err != nil {
				log.Fatal(err)
			}
			return
		}
	}

	envFile := flag.String("env", ".env", "optional dotenv file")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides "+config.Prefix+"LISTEN)")
	dbPath := flag.String("db", "", "SQLite database path (overrides "+config.Prefix+"DB_PATH)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.InsecureJWTSecret {
		logger.Warn("using insecure default JWT secret; set " + config.Prefix + "JWT_SECRET for production")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := store.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var notifier notify.Notifier
	if cfg.SendGridKey != "" {
		notifier = notify.NewEmailNotifier(&notify.SendGridSender{APIKey: cfg.SendGridKey}, notify.Config{
			FromAddress: cfg.FromEmail,
			FromName:    cfg.FromName,
			SandboxMode: cfg.EmailSandbox,
			StatusURL:   cfg.BaseURL + "/api/complaints",
		}, logger)
	} else {
		logger.Info("no SendGrid key configured; confirmations are logged only")
		notifier = &notify.LogNotifier{Logger: logger}
	}

	var (
		uploads   media.Store
		uploadDir string
	)
	if cfg.S3Bucket != "" {
		s3Store, err := media.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		if err != nil {
			return fmt.Errorf("configure S3 uploads: %w", err)
		}
		uploads = s3Store
	} else {
		local, err := media.NewLocalStore(cfg.MediaDir, cfg.BaseURL+"/uploads")
		if err != nil {
			return err
		}
		uploads, uploadDir = local, local.Dir()
	}

	var cache analytics.Cache = analytics.NewMemoryCache(cfg.AnalyticsCacheTTL)
	if cfg.RedisURL != "" {
		rdb, err := analytics.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		cache = analytics.NewRedisCache(rdb, cfg.AnalyticsCacheTTL)
	}

	classifier := classify.Default()
	machine := lifecycle.New(db, logger)
	activity := ledger.New(db)
	pipeline := intake.New(db, classifier, tracking.New(cfg.TrackingPrefix), notifier, logger,
		intake.WithMaxIDAttempts(cfg.MaxIDAttempts),
		intake.WithNotifyTimeout(cfg.NotifyTimeout),
	)

	srv, err := server.NewServer(server.Config{
		JWTSecret: cfg.JWTSecret,
		UploadDir: uploadDir,
		RateLimit: server.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateBurst,
			FilingsPerSecond:  cfg.FilingRateLimit,
			FilingBurst:       cfg.FilingBurst,
			CleanupInterval:   5 * time.Minute,
		},
		RequestTimeout: cfg.RequestTimeout,
	}, server.Deps{
		Store:      db,
		Intake:     pipeline,
		Lifecycle:  machine,
		Ledger:     activity,
		Analytics:  analytics.New(db, cache, logger),
		Classifier: classifier,
		Media:      uploads,
	}, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Stop()

	// Start SLA escalation sweeper.
	if cfg.EscalationInterval > 0 {
		sweeper := escalation.NewEngine(db, machine, logger)
		sweeper.SetTickInterval(cfg.EscalationInterval)
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("escalation engine", "error", err)
			}
		}()
		logger.Info("escalation engine started", "interval", cfg.EscalationInterval)
	}

	// Start email reply fetcher.
	if cfg.IMAPServer != "" {
		fetcher := inbox.NewFetcher(inbox.IMAPConfig{
			Server:   cfg.IMAPServer,
			Username: cfg.IMAPUsername,
			Password: cfg.IMAPPassword,
		}, db, activity, logger)
		fetcher.SetTickInterval(cfg.IMAPInterval)
		go func() {
			if err := fetcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("inbox fetcher", "error", err)
			}
		}()
		logger.Info("email reply fetcher started", "server", cfg.IMAPServer)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// mintToken prints a bearer token for an upstream-authenticated identity.
// It exists for operators and local development; production tokens come
// from the identity provider sharing the same secret.
func mintToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	envFile := fs.String("env", ".env", "optional dotenv file")
	sub := fs.String("sub", "", "actor ID")
	role := fs.String("role", string(model.RoleDepartment), "citizen, department, or admin")
	name := fs.String("name", "", "display name")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	tok, err := server.IssueToken([]byte(cfg.JWTSecret), model.Actor{ID: *sub, Role: model.Role(*role), Name: *name}, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

// addUser registers a staff member in the user directory so complaints can
// be assigned to them.
func addUser(args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	envFile := fs.String("env", ".env", "optional dotenv file")
	dbPath := fs.String("db", "", "SQLite database path (overrides "+config.Prefix+"DB_PATH)")
	var req lifecycle.UserRequest
	fs.StringVar(&req.ID, "id", "", "user ID (the token subject)")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Role, "role", string(model.RoleDepartment), "department or admin")
	fs.StringVar(&req.Department, "department", "", "department name (required for department users)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := store.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	u, err := lifecycle.New(db, logger).RegisterUser(ctx, model.SystemActor, req)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", u.ID, u.Role)
	return nil
}
