// The plantas-scheduler binary runs periodic background jobs: upcoming
// maintenance notifications and expired report cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/assignments"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/config"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/mailer"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/maintenance"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/reports"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage/postgres"
)

const jobTimeout = 2 * time.Minute

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := postgres.Open(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize blob storage")
	}

	maintenanceSvc := maintenance.NewService(db)
	reportSvc := reports.NewService(db, blobs, reports.NewCSVGenerator())
	memberStore := assignments.NewStore(db)
	mail := mailer.NewLogMailer(log)

	retention := 90 * 24 * time.Hour
	if raw := os.Getenv("PLANTAS_REPORT_RETENTION"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			retention = parsed
		}
	}

	c := cron.New()

	_, err = c.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		notifyUpcomingMaintenance(ctx, log, maintenanceSvc, memberStore, mail)
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule maintenance job")
	}

	_, err = c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		removed, err := reportSvc.CleanupOlderThan(ctx, time.Now().Add(-retention))
		if err != nil {
			log.WithError(err).Error("report cleanup failed")
			return
		}
		if removed > 0 {
			log.WithField("removed", removed).Info("expired reports removed")
		}
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule report cleanup job")
	}

	c.Start()
	log.Info("scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("stopping scheduler")
	<-c.Stop().Done()
}

// notifyUpcomingMaintenance mails the assigned technician for every visit
// scheduled within the next 24 hours.
func notifyUpcomingMaintenance(ctx context.Context, log *logrus.Logger, svc *maintenance.Service, members *assignments.Store, mail mailer.Mailer) {
	now := time.Now()
	due, err := svc.DueBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		log.WithError(err).Error("failed to list upcoming maintenance")
		return
	}

	for _, m := range due {
		if m.AssignedTo == nil {
			continue
		}
		user, err := members.GetUser(ctx, *m.AssignedTo)
		if err != nil {
			log.WithError(err).WithField("user_id", *m.AssignedTo).Warn("failed to load assignee")
			continue
		}
		msg := mailer.Message{
			To:      user.Email,
			Subject: fmt.Sprintf("Maintenance due: plant %d", m.PlantID),
			Body:    fmt.Sprintf("Maintenance %q is scheduled for %s.", m.Description, m.ScheduledFor.Format(time.RFC1123)),
		}
		if err := mail.Send(ctx, msg); err != nil {
			log.WithError(err).WithField("maintenance_id", m.ID).Warn("failed to send maintenance notification")
		}
	}
}
