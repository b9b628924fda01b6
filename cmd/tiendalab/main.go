package main

import (
	"context"
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	billingApp "github.com/davicafu/tiendalab/internal/billing/application"
	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	billingEvents "github.com/davicafu/tiendalab/internal/billing/infra/inbound/events"
	billingHttp "github.com/davicafu/tiendalab/internal/billing/infra/inbound/http"
	billingAnalytics "github.com/davicafu/tiendalab/internal/billing/infra/outbound/analytics/clickhouse"
	billingCache "github.com/davicafu/tiendalab/internal/billing/infra/outbound/cache"
	billingMongo "github.com/davicafu/tiendalab/internal/billing/infra/outbound/db/mongodb"
	billingPostgres "github.com/davicafu/tiendalab/internal/billing/infra/outbound/db/postgres"
	billingSQLite "github.com/davicafu/tiendalab/internal/billing/infra/outbound/db/sqlite"
	catalogApp "github.com/davicafu/tiendalab/internal/catalog/application"
	catalogDomain "github.com/davicafu/tiendalab/internal/catalog/domain"
	catalogHttp "github.com/davicafu/tiendalab/internal/catalog/infra/inbound/http"
	catalogSQLite "github.com/davicafu/tiendalab/internal/catalog/infra/outbound/db/sqlite"
	config "github.com/davicafu/tiendalab/internal/config"
	notifApp "github.com/davicafu/tiendalab/internal/notification/application"
	notifDomain "github.com/davicafu/tiendalab/internal/notification/domain"
	notifEvents "github.com/davicafu/tiendalab/internal/notification/infra/inbound/events"
	notifEmail "github.com/davicafu/tiendalab/internal/notification/infra/outbound/email"
	orderApp "github.com/davicafu/tiendalab/internal/order/application"
	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	orderHttp "github.com/davicafu/tiendalab/internal/order/infra/inbound/http"
	orderSQLite "github.com/davicafu/tiendalab/internal/order/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	infraEvents "github.com/davicafu/tiendalab/internal/shared/infra/events"
	platformBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
	platformCache "github.com/davicafu/tiendalab/internal/shared/infra/platform/cache"
	outboxMongo "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/mongodb"
	outboxPostgres "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/postgres"
	outboxSQLite "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/tiendalab/internal/shared/infra/relayer"
	"github.com/davicafu/tiendalab/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	logger.Init("tiendalab")
	log := logger.Logger()
	defer logger.Sync()

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	// SQLite es siempre el almacén de pedidos y catálogo del despliegue
	// local; facturación puede delegarse a Postgres o MongoDB.
	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to open SQLite", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping SQLite", zap.Error(err))
	}
	if err := orderSQLite.InitSQLite(db); err != nil {
		log.Fatal("failed to initialize order tables", zap.Error(err))
	}
	if err := catalogSQLite.InitSQLite(db); err != nil {
		log.Fatal("failed to initialize catalog tables", zap.Error(err))
	}

	orderRepo := orderSQLite.NewOrderRepoSQLite(db)
	productRepo := catalogSQLite.NewProductRepoSQLite(db)

	// El outbox de pedidos y catálogo vive en SQLite.
	sqliteOutbox := outboxSQLite.NewOutboxRepoSQLite(db)

	// Almacén de facturación según configuración; cada variante lleva su
	// propio outbox para que agregado y hecho compartan transacción.
	var invoiceRepo billingDomain.InvoiceRepository
	var billingOutbox sharedDomain.OutboxRepository

	switch {
	case cfg.MongoURI != "":
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Disconnect(ctx)

		repo, err := billingMongo.NewInvoiceRepoMongoDB(ctx, mongoClient, cfg.MongoDatabase)
		if err != nil {
			log.Fatal("failed to initialize MongoDB invoice repo", zap.Error(err))
		}
		invoiceRepo = repo
		billingOutbox = outboxMongo.NewOutboxRepoMongoDB(mongoClient, cfg.MongoDatabase)
		log.Info("✅ Billing store: MongoDB")

	case cfg.PostgresDSN != "":
		pgDB, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer pgDB.Close()

		if err := billingPostgres.InitPostgres(ctx, pgDB); err != nil {
			log.Fatal("failed to initialize Postgres billing tables", zap.Error(err))
		}
		invoiceRepo = billingPostgres.NewInvoiceRepoPostgres(pgDB)
		billingOutbox = outboxPostgres.NewOutboxRepoPostgres(pgDB)
		log.Info("✅ Billing store: Postgres")

	default:
		if err := billingSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite billing tables", zap.Error(err))
		}
		invoiceRepo = billingSQLite.NewInvoiceRepoSQLite(db)
		billingOutbox = sqliteOutbox
		log.Info("Billing store: SQLite (local)")
	}

	// ---------------- Cache ----------------
	var cacheInstance platformCache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
			cacheInstance = billingCache.NewInMemoryInvoiceCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		} else {
			cacheInstance = billingCache.NewRedisInvoiceCache(rdb, cfg.CacheTTL)
			log.Info("✅ Redis conectado, cache habilitado")
		}
	} else {
		cacheInstance = billingCache.NewInMemoryInvoiceCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	}

	// ---------------- Analytics ----------------
	var analytics billingDomain.RevenueAnalytics
	if cfg.ClickHouseAddr != "" {
		chRepo, err := billingAnalytics.NewInvoiceAnalyticsRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else if err := chRepo.Init(ctx); err != nil {
			log.Warn("⚠️ ClickHouse init failed, analítica deshabilitada", zap.Error(err))
		} else {
			analytics = chRepo
			log.Info("✅ ClickHouse conectado, analítica habilitada")
		}
	}

	// ---------------- Email ----------------
	var emailSender notifDomain.EmailSender
	if cfg.SMTPHost != "" {
		emailSender = notifEmail.NewGomailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		log.Info("✅ SMTP configurado", zap.String("host", cfg.SMTPHost))
	} else {
		emailSender = notifEmail.NewLogSender(log)
		log.Info("SMTP no configurado, correos solo en log")
	}

	// --------------- Servicios --------------
	orderService := orderApp.NewOrderService(orderRepo, cfg.OrderPrefix, log)
	invoiceService := billingApp.NewInvoiceService(invoiceRepo, cacheInstance, analytics,
		cfg.TaxRate, cfg.InvoicePrefix, cfg.InvoiceDueDays, log)
	productService := catalogApp.NewProductService(productRepo, log)
	dispatcher := notifApp.NewDispatcher(emailSender, log)

	// ---------------- Consumidores ----------------
	billingConsumer := billingEvents.NewOrderConsumer(invoiceService, log)
	notifOrderConsumer := notifEvents.NewOrderConsumer(dispatcher, log)
	notifInvoiceConsumer := notifEvents.NewInvoiceConsumer(dispatcher, log)

	// ---------------- Bus de eventos ----------------
	var publisher platformBus.EventPublisher

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Balancer: &kafka.Hash{},
		}
		defer writer.Close()
		publisher = infraEvents.NewKafkaPublisher(writer, log)

		startKafkaConsumer := func(topic, group string, handler platformBus.MessageHandler) {
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.KafkaBrokers,
				Topic:    topic,
				GroupID:  group,
				MinBytes: 10e3, // 10KB
				MaxBytes: 10e6, // 10MB
			})
			infraEvents.NewConsumerAdapter(reader, handler, log).Start(ctx)
		}

		startKafkaConsumer(orderDomain.OrderTopic, "tiendalab-billing", billingConsumer)
		startKafkaConsumer(orderDomain.OrderTopic, "tiendalab-notification", notifOrderConsumer)
		startKafkaConsumer(billingDomain.BillingTopic, "tiendalab-notification", notifInvoiceConsumer)

	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryBus(log)
		publisher = bus

		bus.Subscribe(ctx, orderDomain.OrderTopic, billingConsumer)
		bus.Subscribe(ctx, orderDomain.OrderTopic, notifOrderConsumer)
		bus.Subscribe(ctx, billingDomain.BillingTopic, notifInvoiceConsumer)
	}

	// ------------ Outbox Workers ------------
	// Merge de los registros de eventos de cada contexto.
	eventRegistry := make(map[string]sharedEvents.EventMetadata)
	for k, v := range orderDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range billingDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range catalogDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}

	sqliteWorker := relayer.NewOutboxWorker(sqliteOutbox, publisher, eventRegistry,
		cfg.OutboxPeriod, cfg.OutboxLimit, log)
	go sqliteWorker.Start(ctx)

	// Si facturación vive en otro almacén, su outbox necesita su propio worker.
	if billingOutbox != sqliteOutbox {
		billingWorker := relayer.NewOutboxWorker(billingOutbox, publisher, eventRegistry,
			cfg.OutboxPeriod, cfg.OutboxLimit, log)
		go billingWorker.Start(ctx)
	}

	// ---------------- HTTP ----------------
	orderHandler := orderHttp.NewOrderHandler(orderService)
	invoiceHandler := billingHttp.NewInvoiceHandler(invoiceService)
	productHandler := catalogHttp.NewProductHandler(productService)

	router := gin.Default()
	orderHttp.RegisterOrderRoutes(router, orderHandler)
	billingHttp.RegisterInvoiceRoutes(router, invoiceHandler)
	catalogHttp.RegisterProductRoutes(router, productHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
