package main

import (
	"staybook/internal/reservations/events"
	"staybook/internal/reservations/handler"
	"staybook/internal/reservations/repository"
	"staybook/internal/reservations/service"
	"staybook/internal/reservations/validator"
	"staybook/pkg/app"
	"staybook/pkg/config"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	"staybook/pkg/lock"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.LogConfiguration()

	cfg.Log.Info("Starting Reservations service")
	cfg.SetStorage()

	repo := initRepository(cfg)
	publisher := initPublisher(cfg)
	reservationService := service.NewReservationService(
		repo,
		initLocker(cfg),
		publisher,
		validator.NewReservationValidator(validator.IntervalRules{
			MinLeadTime: cfg.MinLeadTime,
			MinStay:     cfg.MinStayDuration,
		}, cfg.Log),
		cfg,
	)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewReservationHandler(reservationService, cfg.Log),
		handler.NewHealthHandler(repo, cfg.Log),
	)
	serverApp.OnShutdown(publisher)
	serverApp.Run()
}

func initRepository(cfg *config.Config) repository.ReservationRepository {
	if cfg.StorageDriver == config.StoragePostgres {
		cfg.Log.Info("Reservation repository initialized", "driver", cfg.StorageDriver)
		return repository.NewPostgresReservationRepository(cfg)
	}
	cfg.Log.Info("Reservation repository initialized", "driver", cfg.StorageDriver, "database", cfg.MongoDatabaseName)
	return repository.NewMongoReservationRepository(cfg)
}

func initLocker(cfg *config.Config) lock.Locker {
	switch cfg.LockBackend {
	case config.LockMongo:
		cfg.Log.Info("Pool lock backend initialized", "backend", cfg.LockBackend, "ttl", cfg.PoolLockTTL)
		return lock.Polling(repository.NewMongoPoolLocker(cfg), 0, cfg.PoolLockTTL)
	case config.LockRedis:
		cfg.SetRedis()
		cfg.Log.Info("Pool lock backend initialized", "backend", cfg.LockBackend, "ttl", cfg.PoolLockTTL)
		return lock.Polling(lock.NewRedis(cfg.Client.Redis, cfg.PoolLockTTL), 0, cfg.PoolLockTTL)
	default:
		cfg.Log.Info("Pool lock backend initialized", "backend", config.LockLocal)
		return lock.NewLocal()
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		producer, err := kafka.NewProducer(kafkaCfg, cfg.ReservationsTopic, cfg.ReservationsDLQ, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer.Use(kafka.LoggingMiddleware(cfg.Log))
		cfg.Log.Info("Event publisher initialized", "backend", cfg.EventsBackend, "topic", cfg.ReservationsTopic)
		return events.NewKafkaPublisher(producer)
	case config.EventsNATS:
		cfg.SetNATS()
		cfg.Log.Info("Event publisher initialized", "backend", cfg.EventsBackend, "subject", cfg.ReservationsTopic)
		return events.NewNATSPublisher(cfg.Client.NATS, cfg.ReservationsTopic)
	default:
		cfg.Log.Info("Event publishing disabled")
		return events.NewNoopPublisher()
	}
}
