package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", got)
	}
	if cfg.MongoDB.Database != "leadsflow" {
		t.Fatalf("database = %q", cfg.MongoDB.Database)
	}
	if cfg.OTP.TTL != 10*time.Minute {
		t.Fatalf("otp ttl = %v", cfg.OTP.TTL)
	}
	if cfg.OTP.LoginCooldown != 5*time.Second {
		t.Fatalf("login cooldown = %v", cfg.OTP.LoginCooldown)
	}
	if cfg.Notify.PacingDelay != 2*time.Second {
		t.Fatalf("pacing delay = %v", cfg.Notify.PacingDelay)
	}
	if cfg.Notify.ReminderHour != 9 {
		t.Fatalf("reminder hour = %d", cfg.Notify.ReminderHour)
	}
	if cfg.Kafka.Enabled || cfg.Push.Enabled {
		t.Fatalf("kafka/push should default off: %+v %+v", cfg.Kafka.Enabled, cfg.Push.Enabled)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
			MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017", Database: "leadsflow"},
		}
	}

	if err := base().validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("zero port should be rejected")
	}

	cfg = base()
	cfg.MongoDB.URI = ""
	if err := cfg.validate(); err == nil {
		t.Fatal("missing mongodb URI should be rejected")
	}

	cfg = base()
	cfg.Push.Enabled = true
	if err := cfg.validate(); err == nil {
		t.Fatal("push without VAPID keys should be rejected")
	}
	cfg.Push.VAPIDPublicKey = "pub"
	cfg.Push.VAPIDPrivateKey = "priv"
	if err := cfg.validate(); err != nil {
		t.Fatalf("push with VAPID keys rejected: %v", err)
	}
}
