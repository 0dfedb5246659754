package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPurgeSchedulerRunNow(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	kitID := createStarter(t, svc)
	player := uuid.New()

	stale := time.Now().Add(-72 * time.Hour).UTC().Truncate(time.Second)
	fresh := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := store.AddCooldown(ctx, player, kitID, stale); err != nil {
		t.Fatalf("AddCooldown failed: %v", err)
	}
	other := uuid.New()
	if err := store.AddCooldown(ctx, other, kitID, fresh); err != nil {
		t.Fatalf("AddCooldown failed: %v", err)
	}

	scheduler := NewPurgeScheduler(store, PurgeConfig{Retention: 24 * time.Hour})
	scheduler.RunNow()

	row, err := store.FindCooldown(ctx, player, kitID)
	if err != nil || row != nil {
		t.Errorf("stale row survived purge: (%v, %v)", row, err)
	}
	row, err = store.FindCooldown(ctx, other, kitID)
	if err != nil || row == nil {
		t.Errorf("fresh row purged: (%v, %v)", row, err)
	}
}

func TestPurgeSchedulerStartStop(t *testing.T) {
	_, store := newTestService(t)

	scheduler := NewPurgeScheduler(store, PurgeConfig{Interval: 10 * time.Millisecond})
	scheduler.Start()
	scheduler.Start() // second Start is a no-op
	time.Sleep(30 * time.Millisecond)
	scheduler.Stop()
	scheduler.Stop() // second Stop is a no-op
}
