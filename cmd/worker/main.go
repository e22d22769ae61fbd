// Package main (in worker-subfolder) provides launch of the batch worker: reads batch UIDs from kafka and converts their directories
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/converter"
	"github.com/UnendingLoop/IconConverter/internal/kafka"
	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/notify"
	"github.com/UnendingLoop/IconConverter/internal/repository"
	"github.com/UnendingLoop/IconConverter/internal/service"
	"github.com/UnendingLoop/IconConverter/internal/settings"
	"github.com/UnendingLoop/IconConverter/internal/storage"
	"github.com/UnendingLoop/IconConverter/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig, err := settings.Bootstrap("./.env")
	if err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}
	cfg := settings.Load(appConfig)

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(cfg.DB.DSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v\nExiting worker...", err)
	}
	// подкллючиться к хранилищу иконок
	strg, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init icon storage: %v\nExiting worker...", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresBatchRepo(dbConn)
	// создаем экземпляр сервиса
	var svc BatchWorkerService = service.NewBatchService(repo, NoopPublisher{})

	// конвертер собирается под политику конкретного батча
	conv := cfg.Converter
	newRunner := func(policy model.Policy) worker.BatchRunner {
		return converter.New(strg, converter.Options{
			Policy:  policy,
			Workers: conv.Workers,
			Quality: conv.Quality,
			Suffix:  model.IconSuffix,
		})
	}

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.Kafka.Broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is unavailable: %v\nExiting worker...", err)
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	w := worker.NewWorkerInstance(svc, newRunner, strg, notify.FromSettings(cfg),
		queue, cons, conv.ReportFormat, service.StaleAfter)
	go w.StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
