package storage

import (
	"context"
	"reflect"
	"testing"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	patch := domain.AvailabilityMap{"p1": true, "p2": false}
	if err := store.SaveBulk(ctx, domain.KindProducts, patch, "admin"); err != nil {
		t.Fatalf("SaveBulk failed: %v", err)
	}

	got, err := store.LoadAll(ctx, domain.KindProducts)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if !reflect.DeepEqual(got, patch) {
		t.Errorf("expected %v, got %v", patch, got)
	}

	// returned map must not alias internal state
	got["p3"] = true
	again, _ := store.LoadAll(ctx, domain.KindProducts)
	if _, ok := again["p3"]; ok {
		t.Error("LoadAll returned an aliased map")
	}
}

func TestMemoryStore_Fail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Fail(true)

	if err := store.Ping(ctx); err == nil {
		t.Error("expected ping error while failing")
	}
	if err := store.SaveBulk(ctx, domain.KindProducts, domain.AvailabilityMap{"p1": true}, "admin"); err == nil {
		t.Error("expected save error while failing")
	}

	store.Fail(false)
	if err := store.Ping(ctx); err != nil {
		t.Errorf("expected recovery after Fail(false), got: %v", err)
	}
	got, _ := store.LoadAll(ctx, domain.KindProducts)
	if len(got) != 0 {
		t.Errorf("refused write leaked into store: %v", got)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.SaveBulk(ctx, domain.KindFlavors, domain.AvailabilityMap{"f1": true}, "admin")
	if err := store.Clear(ctx, domain.KindFlavors); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, _ := store.LoadAll(ctx, domain.KindFlavors)
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
