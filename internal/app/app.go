// Package app wires configuration into a running scheduling service.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"swimslot/internal/booking"
	"swimslot/internal/cancellation"
	"swimslot/internal/config"
	"swimslot/internal/db"
	"swimslot/internal/email"
	"swimslot/internal/events"
	"swimslot/internal/instructor"
	"swimslot/internal/logger"
	"swimslot/internal/notify"
	"swimslot/internal/reschedule"
	"swimslot/internal/scheduling"
	"swimslot/internal/server"
	"swimslot/internal/session"
	"swimslot/internal/swimmer"
	"swimslot/internal/tracing"
	"swimslot/internal/user"
)

type App struct {
	Config     *config.Config
	Store      *db.Store
	Scheduling *scheduling.Service
	Email      *email.Service
	Server     *server.Server

	closers []func(context.Context) error
}

// New connects to the store and builds every component. Mail and events are
// optional: without REDIS_ADDR or RABBITMQ_URL they are replaced by no-ops.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	conn, err := db.Connect(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	a.Store = db.NewStore(conn, db.StoreConfig{
		Timeout:          cfg.StoreTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	})

	catalog := session.NewCatalog(session.NewRepository(a.Store))
	ledger := booking.NewLedger(booking.NewRepository(a.Store), catalog, a.Store)
	swimmers := swimmer.NewDirectory(a.Store)
	profiles := user.NewRepository(a.Store)

	var senders notify.Multi
	if cfg.RedisAddr != "" {
		a.Email = email.New(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     strconv.Itoa(cfg.SMTPPort),
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		}, cfg.RedisAddr)
		a.closers = append(a.closers, func(context.Context) error { return a.Email.Close() })
		senders = append(senders, email.NewNotifier(a.Email, ledger, catalog, swimmers, profiles))
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("events publisher: %w", err)
		}
		publisher = pub
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
	}

	emitter := events.NewEmitter(publisher)
	a.closers = append(a.closers, func(context.Context) error {
		emitter.Wait()
		return nil
	})

	a.Scheduling = scheduling.NewService(scheduling.Deps{
		Sessions:      catalog,
		Ledger:        ledger,
		Cancellations: cancellation.NewRepository(a.Store),
		Swimmers:      swimmers,
		Reschedules:   reschedule.NewCoordinator(ledger, catalog, a.Store, senders),
		Reassigner:    instructor.NewReassigner(ledger, catalog, instructor.NewDirectory(profiles)),
		Policy:        cancellation.NewPolicy(cfg.LateCancelWindow, cfg.ParentLateCancelBlocked),
		Tx:            a.Store,
		Notifier:      senders,
		Events:        emitter,
	})
	a.Server = server.New(cfg, a.Scheduling, a.Email)

	logger.Info("application wired",
		"db_driver", cfg.DBDriver,
		"email", a.Email != nil,
		"events", cfg.RabbitMQURL != "",
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
