// Package main (in api-subfolder) provides launch of the batch API: accepts conversion batches and serves their reports
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/kafka"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/repository"
	"github.com/UnendingLoop/IconConverter/internal/service"
	"github.com/UnendingLoop/IconConverter/internal/settings"
	"github.com/UnendingLoop/IconConverter/internal/transport"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
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
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(cfg.DB.DSN, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v\nExiting app...", err)
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		log.Fatalf("Failed to apply migrations: %v\nExiting app...", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresBatchRepo(dbConn)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.Kafka.Broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is unavailable: %v\nExiting app...", err)
	}
	// подключиться к кафке как продюсер
	if err := kafka.InitKafkaTopics(ctx, cfg.Kafka.Broker, 10*time.Second, cfg.Kafka.Topic); err != nil {
		log.Fatalf("Failed to init kafka topics: %v\nExiting app...", err)
	}
	pub := wbfkafka.NewProducer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic)

	// создаем экземпляр сервиса
	var svc BatchAPIService = service.NewBatchService(repo, pub)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewBatchHandler(svc)
	// сетапим сервер
	engine := ginext.New(cfg.HTTP.GinMode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/batches", handlers.Create)                // создание батча
	engine.GET("/batches", handlers.GetAllBatches)          // список с пагинацией и сортировкой
	engine.GET("/batches/:id", handlers.GetBatch)           // статус батча
	engine.GET("/batches/:id/report", handlers.LoadReport) // отчёт json|yaml

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           mwlogger.NewMWLogger(engine),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших батчей
	go recoveryLoop(ctx, svc)

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	log.Println("Exiting API...")
}

func recoveryLoop(ctx context.Context, svc BatchAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Failed to shutdown HTTP-server:", err)
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
