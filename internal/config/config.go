package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Almacenes. SQLite es el despliegue local por defecto; el resto se
	// activa cuando su variable correspondiente está definida.
	SQLitePath     string
	PostgresDSN    string
	MongoURI       string
	MongoDatabase  string
	ClickHouseAddr string
	ClickHouseDB   string
	RedisAddr      string

	// Bus de eventos. Sin brokers configurados se usa el bus en memoria.
	UseKafka     bool
	KafkaBrokers []string

	// SMTP. Sin host configurado los correos solo se escriben en el log.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Parámetros de negocio.
	TaxRate        decimal.Decimal
	OrderPrefix    string
	InvoicePrefix  string
	InvoiceDueDays int

	CacheTTL     time.Duration
	OutboxPeriod time.Duration
	OutboxLimit  int
	HTTPPort     string
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", ""), ",")
	useKafka := kafkaBrokers[0] != ""

	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.20"))
	if err != nil {
		taxRate = decimal.NewFromFloat(0.20)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		smtpPort = 587
	}

	dueDays, err := strconv.Atoi(getEnv("INVOICE_DUE_DAYS", "30"))
	if err != nil {
		dueDays = 30
	}

	return &Config{
		SQLitePath:     getEnv("SQLITE_PATH", "./tiendalab.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DB", "tiendalab"),
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "tiendalab"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),

		UseKafka:     useKafka,
		KafkaBrokers: kafkaBrokers,

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: smtpPort,
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "noreply@tiendalab.dev"),

		TaxRate:        taxRate,
		OrderPrefix:    getEnv("ORDER_PREFIX", "ORD"),
		InvoicePrefix:  getEnv("INVOICE_PREFIX", "INV"),
		InvoiceDueDays: dueDays,

		CacheTTL:     5 * time.Minute,
		OutboxPeriod: 1 * time.Second,
		OutboxLimit:  10,
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
	}
}
