package redis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/jonesrussell/north-cloud/link-health/infrastructure/redis"
)

func TestNewClient_RequiresAddress(t *testing.T) {
	client, err := redis.NewClient(context.Background(), redis.Config{})

	if !errors.Is(err, redis.ErrEmptyAddress) {
		t.Errorf("error = %v, want ErrEmptyAddress", err)
	}
	if client != nil {
		t.Error("expected nil client")
	}
}

func TestNewClient_PingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := redis.NewClient(context.Background(), redis.Config{Address: srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()
}

func TestNewClient_UnreachableServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	if _, err := redis.NewClient(context.Background(), redis.Config{Address: addr}); err == nil {
		t.Fatal("expected ping error for closed server")
	}
}
