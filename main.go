package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/api/scheduler"
	"github.com/chakshi/chakshi-api/config"
	"github.com/chakshi/chakshi-api/databases"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "chakshi-api",
		Usage: "Case management backend for advocates and their clerks",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server and the hearing reminder job",
				Action: serve,
			},
			{
				Name:   "ensure-indexes",
				Usage:  "Create the collection indexes and exit",
				Action: ensureIndexes,
			},
			{
				Name:   "send-reminders",
				Usage:  "Send hearing reminders for the next 24 hours once and exit",
				Action: sendReminders,
			},
		},
		// running the binary with no command starts the server
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// initialize loads config and connects the app to the database
func initialize(ctx context.Context) (*handlers.App, error) {
	conf, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &handlers.App{Config: *conf}
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func newScheduler(a *handlers.App) *scheduler.Scheduler {
	var mailer scheduler.Mailer
	if m := scheduler.NewSendGridMailer(a.Config.SendGridAPIKey, a.Config.ReminderFromEmail); m != nil {
		mailer = m
	} else {
		zap.S().Info("sendgrid is not configured, hearing reminders will not be emailed")
	}
	return scheduler.NewScheduler(databases.NewCaseDatabase(a.DB()), mailer, a.Hub, a.Config.ReminderCron)
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := initialize(ctx)
	if err != nil {
		return err
	}

	s := newScheduler(a)
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("chakshi-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().With("error", err).Error("failed to shut down http server")
	}
	return a.Close(shutdownCtx)
}

func ensureIndexes(cCtx *cli.Context) error {
	a, err := initialize(cCtx.Context)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := databases.EnsureIndexes(cCtx.Context, a.DB()); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	zap.S().Info("indexes are up to date")
	return nil
}

func sendReminders(cCtx *cli.Context) error {
	a, err := initialize(cCtx.Context)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	sent, err := newScheduler(a).SendHearingReminders(cCtx.Context)
	if err != nil {
		return err
	}
	zap.S().Infow("hearing reminders sent", "emails", sent)
	return nil
}
