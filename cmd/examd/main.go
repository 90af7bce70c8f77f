package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/examhall/internal/api/http"
	"github.com/mind-engage/examhall/internal/attempt"
	"github.com/mind-engage/examhall/internal/auth"
	"github.com/mind-engage/examhall/internal/authoring"
	"github.com/mind-engage/examhall/internal/config"
	"github.com/mind-engage/examhall/internal/db"
	"github.com/mind-engage/examhall/internal/exam"
	"github.com/mind-engage/examhall/internal/grading"
	"github.com/mind-engage/examhall/internal/platform/logger"
	"github.com/mind-engage/examhall/internal/review"
	"github.com/mind-engage/examhall/internal/storage"
	syncx "github.com/mind-engage/examhall/internal/sync"
)

const version = "1.0.0"

// backend is the storage a process runs on.
type backend struct {
	store  exam.Store
	events interface {
		syncx.Sink
		syncx.Source
	}
	close func() error
}

func main() {
	cfg := config.Load()
	log := logger.Must(logger.Options{Mode: cfg.LogMode, File: cfg.LogFile})
	defer log.Sync()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		log.Sync()
		os.Exit(1)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn("AUTH_HMAC_SECRET is unset, signing tokens with the development secret")
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(cfg, log)
	case "events":
		err = exportEvents(cfg, log, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q (want serve or events)", cmd)
	}
	if err != nil {
		log.Error("examd exited", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if driver == db.DriverMemory {
		return &backend{
			store:  exam.NewInMemoryStore(),
			events: syncx.NewMemoryLog(),
			close:  func() error { return nil },
		}, nil
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	site, _ := os.Hostname()
	return &backend{
		store:  exam.NewSQLStore(dbh),
		events: syncx.NewEventRepo(dbh, site),
		close:  dbh.Close,
	}, nil
}

func serve(cfg config.Config, log *logger.Logger) error {
	printStartUpBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	be, err := openBackend(openCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer be.close()

	blobs, err := storage.NewFSStore(cfg.BlobBasePath, "/uploads")
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	tokens := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL)
	grader := grading.NewDefaultGrader(
		grading.WithEssayAutoAccept(cfg.EssayAutoAccept),
		grading.WithMaxEditDistance(cfg.EssayMaxEdit),
	)
	attempts := attempt.NewService(be.store, grader,
		attempt.WithGrace(cfg.SubmissionGrace),
		attempt.WithEvents(be.events),
		attempt.WithLogger(log.With("component", "attempt")),
	)
	reviews := review.NewService(be.store,
		review.WithEvents(be.events),
		review.WithLocker(attempts),
		review.WithLogger(log.With("component", "review")),
	)
	router := api.NewRouter(api.Deps{
		Log:         log,
		Store:       be.store,
		Tokens:      tokens,
		Credentials: auth.NewCredentials(be.store, tokens, auth.WithLogger(log.With("component", "auth"))),
		Authoring: authoring.NewService(be.store,
			authoring.WithBlobs(blobs),
			authoring.WithLogger(log.With("component", "authoring")),
		),
		Attempts:       attempts,
		Reviews:        reviews,
		Blobs:          blobs,
		CORSOrigins:    cfg.CORSOrigins,
		AuthRatePerMin: cfg.AuthRatePerMin,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		ServeUploads:   cfg.ServeUploads,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// exportEvents writes the event log as JSON lines to stdout.
func exportEvents(cfg config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	after := fs.Int64("after", 0, "only events with seq greater than this")
	limit := fs.Int("limit", 500, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	enc := json.NewEncoder(os.Stdout)
	cursor, total := *after, 0
	for {
		page, err := be.events.Since(ctx, cursor, *limit)
		if err != nil {
			return err
		}
		for _, e := range page {
			if err := enc.Encode(e); err != nil {
				return err
			}
			cursor = e.Seq
		}
		total += len(page)
		if len(page) == 0 || len(page) < *limit {
			break
		}
	}
	log.Info("events exported", "count", total, "last_seq", cursor)
	return nil
}

func printStartUpBanner() {
	myFigure := figure.NewFigure("EXAMHALL", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("EXAMHALL API (v%s)\n\n", version)
}
