package db

import (
	"context"
	"testing"
)

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect(context.Background(), Options{DSN: "   "}); err == nil {
		t.Fatalf("expected error for blank dsn")
	}
}

func TestCloseNilPostgres(t *testing.T) {
	var p *Postgres
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error closing nil pool, got %v", err)
	}
}
