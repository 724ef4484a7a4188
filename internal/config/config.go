package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	HTTPAddr    string

	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	MigrationsPath string

	KafkaBrokerURL string
	ConsumerGroup  string

	Topics struct {
		OrderEvents           string
		WarehouseAvailability string
		WalletOutcome         string
		RefundRequests        string
		OrderOutcome          string
	}

	RedisAddr string

	// Gateway upstreams.
	Upstreams struct {
		Order     string
		Wallet    string
		Warehouse string
	}

	// Wallet service: counterparty of every order payment and refund.
	BankWalletID string

	// Order service notifications.
	AdminEmail string
	SMTPAddr   string
	MailFrom   string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration
}

// LoadConfig builds the configuration for one of the three services. The
// service name drives the defaults (HTTP port, database name, consumer group)
// so a local docker-compose run needs no env at all.
func LoadConfig(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{ServiceName: serviceName}

	defaultPort, ok := defaultHTTPPorts[serviceName]
	if !ok {
		return nil, fmt.Errorf("unknown service name %q", serviceName)
	}
	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", fmt.Sprintf(":%d", defaultPort))

	cfg.DBConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("DB_NAME", serviceName+"_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations/"+serviceName)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.ConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", serviceName+"-service-group")

	cfg.Topics.OrderEvents = getEnvOrDefault("KAFKA_ORDER_EVENTS_TOPIC", "order-events")
	cfg.Topics.WarehouseAvailability = getEnvOrDefault("KAFKA_WAREHOUSE_AVAILABILITY_TOPIC", "warehouse-availability")
	cfg.Topics.WalletOutcome = getEnvOrDefault("KAFKA_WALLET_OUTCOME_TOPIC", "wallet-outcome")
	cfg.Topics.RefundRequests = getEnvOrDefault("KAFKA_REFUND_REQUESTS_TOPIC", "refund-requests")
	cfg.Topics.OrderOutcome = getEnvOrDefault("KAFKA_ORDER_OUTCOME_TOPIC", "order-outcome")

	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")

	cfg.Upstreams.Order = getEnvOrDefault("ORDER_SERVICE_URL", "http://localhost:8081")
	cfg.Upstreams.Wallet = getEnvOrDefault("WALLET_SERVICE_URL", "http://localhost:8082")
	cfg.Upstreams.Warehouse = getEnvOrDefault("WAREHOUSE_SERVICE_URL", "http://localhost:8083")

	cfg.BankWalletID = getEnvOrDefault("BANK_WALLET_ID", "bank")
	cfg.AdminEmail = getEnvOrDefault("ADMIN_EMAIL", "admin@localhost")
	cfg.SMTPAddr = getEnvOrDefault("SMTP_ADDR", "")
	cfg.MailFrom = getEnvOrDefault("MAIL_FROM", "no-reply@localhost")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	return cfg, nil
}

var defaultHTTPPorts = map[string]int{
	"gateway":   8080,
	"order":     8081,
	"wallet":    8082,
	"warehouse": 8083,
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
