package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/prediction"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	queuesvc "github.com/trezcool/darasa/services/queue"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

// The fulfillment worker consumes billed prediction tasks one at a time,
// computes the attendance prediction and reconciles the outcome. Every
// delivery is acknowledged exactly once after processing, so a crash before
// the ack leaves the task queued for redelivery and the idempotent reconcile
// keeps redeliveries harmless.
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WORKER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	queue, err := queuesvc.NewRabbitQueue(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up queue: %v", err), err)
	}
	defer queue.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// set up services
	atom := database.NewAtomizer(db)
	accountRepo := sqlxrepos.NewAccountRepository(db)
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db))
	usrSvc := user.NewService(atom, sqlxrepos.NewUserRepository(db), accountRepo)
	predSvc := prediction.NewService(atom, sqlxrepos.NewPredictionRepository(db), accountRepo, queue, conf, logger)

	processor := prediction.NewProcessor(
		predSvc,
		attSvc,
		prediction.AttendanceRatio,
		usrSvc,
		mailSvc,
		logger,
	)

	// =========================================================================
	// Consume

	logger.Info(fmt.Sprintf("Worker initializing : version %q : queue %q", conf.Build, conf.Broker.Queue))
	defer logger.Info("Worker stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel()
	}()

	if err = queue.Consume(ctx, processor.Process); err != nil {
		logger.Fatal(fmt.Sprintf("consuming queue: %v", err), err)
	}
}
