package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cases := []struct {
		service  string
		httpAddr string
		dbName   string
		group    string
	}{
		{"order", ":8081", "order_db", "order-service-group"},
		{"wallet", ":8082", "wallet_db", "wallet-service-group"},
		{"warehouse", ":8083", "warehouse_db", "warehouse-service-group"},
	}

	for _, tc := range cases {
		t.Run(tc.service, func(t *testing.T) {
			cfg, err := LoadConfig(tc.service)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cfg.HTTPAddr != tc.httpAddr {
				t.Errorf("expected HTTP addr %s, got %s", tc.httpAddr, cfg.HTTPAddr)
			}
			if cfg.DBConfig.Name != tc.dbName {
				t.Errorf("expected db name %s, got %s", tc.dbName, cfg.DBConfig.Name)
			}
			if cfg.ConsumerGroup != tc.group {
				t.Errorf("expected consumer group %s, got %s", tc.group, cfg.ConsumerGroup)
			}
			if cfg.MigrationsPath != "file://migrations/"+tc.service {
				t.Errorf("unexpected migrations path %s", cfg.MigrationsPath)
			}
		})
	}
}

func TestLoadConfigUnknownService(t *testing.T) {
	if _, err := LoadConfig("billing"); err == nil {
		t.Fatal("expected error for unknown service name")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_NAME", "custom_db")
	t.Setenv("KAFKA_BROKER_URL", "broker-1:9092,broker-2:9092")
	t.Setenv("BANK_WALLET_ID", "treasury")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := LoadConfig("order")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("expected HTTP addr override, got %s", cfg.HTTPAddr)
	}
	if cfg.DBConfig.Name != "custom_db" {
		t.Errorf("expected db name override, got %s", cfg.DBConfig.Name)
	}
	if brokers := cfg.GetKafkaBrokers(); len(brokers) != 2 || brokers[1] != "broker-2:9092" {
		t.Errorf("expected two brokers, got %v", brokers)
	}
	if cfg.BankWalletID != "treasury" {
		t.Errorf("expected bank wallet override, got %s", cfg.BankWalletID)
	}
	if cfg.OutboxPollInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms poll interval, got %s", cfg.OutboxPollInterval)
	}
}

func TestConnectionStrings(t *testing.T) {
	cfg, err := LoadConfig("wallet")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dsn := cfg.GetDBConnectionString()
	if dsn == "" {
		t.Fatal("expected a non-empty connection string")
	}
	migrateDSN := cfg.GetDBMigrationConnectionString()
	if migrateDSN[:11] != "postgres://" {
		t.Fatalf("expected postgres:// migration DSN, got %s", migrateDSN)
	}
}
