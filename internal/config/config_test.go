package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Broker.Port != 5672 {
		t.Fatalf("broker port = %d, want 5672", cfg.Broker.Port)
	}
	if cfg.Broker.ReconnectDelay != 5*time.Second {
		t.Fatalf("reconnect delay = %v, want 5s", cfg.Broker.ReconnectDelay)
	}
	if cfg.Broker.MaxReconnectAttempts != 10 {
		t.Fatalf("max reconnect attempts = %d, want 10", cfg.Broker.MaxReconnectAttempts)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("RABBITMQ_HEARTBEAT", "30")
	t.Setenv("EXPO_PUSH_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Broker.Port != 5673 {
		t.Fatalf("broker port = %d, want 5673", cfg.Broker.Port)
	}
	if cfg.Broker.Heartbeat != 30*time.Second {
		t.Fatalf("heartbeat = %v, want 30s", cfg.Broker.Heartbeat)
	}
	if cfg.Push.Timeout != 15*time.Second {
		t.Fatalf("push timeout = %v, want 15s", cfg.Push.Timeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("RABBITMQ_PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a bad integer")
	}
}
