// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package volatile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
)

func testSnapshot(t *testing.T, serverID string, ts time.Time, fps float64) *models.HealthSnapshot {
	t.Helper()
	s, err := models.NewHealthSnapshot(serverID, map[string]interface{}{"fps": fps}, nil, ts, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}
	return s
}

func testCommand(t *testing.T, serverID, text, user string, ts time.Time) *models.CommandExecution {
	t.Helper()
	c, err := models.NewCommandExecution(serverID, map[string]interface{}{
		"command":   text,
		"user_name": user,
		"success":   true,
		"timestamp": ts,
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandExecution() error: %v", err)
	}
	return c
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.push(i)
	}
	got := r.items()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("items() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStore_PerServerCapNeverErrors(t *testing.T) {
	store := NewStore(Config{SnapshotsPerServer: 5}, nil)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 20; i++ {
		snap := testSnapshot(t, "srv-1", now.Add(time.Duration(i)*time.Second), float64(i))
		if err := store.StoreSnapshot(ctx, snap); err != nil {
			t.Fatalf("StoreSnapshot() error on overflow: %v", err)
		}
	}

	snaps, err := store.Snapshots(ctx, "srv-1", now.Add(-time.Hour), now.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("Snapshots() error: %v", err)
	}
	if len(snaps) != 5 {
		t.Errorf("len = %d, want 5 (cap)", len(snaps))
	}
	// Newest first; the oldest 15 were dropped.
	if snaps[0].HealthData["fps"] != 19 {
		t.Errorf("newest fps = %v, want 19", snaps[0].HealthData["fps"])
	}
	if snaps[len(snaps)-1].HealthData["fps"] != 15 {
		t.Errorf("oldest kept fps = %v, want 15", snaps[len(snaps)-1].HealthData["fps"])
	}
}

func TestStore_LatestSnapshot(t *testing.T) {
	store := NewStore(Config{}, nil)
	ctx := context.Background()

	if _, err := store.LatestSnapshot(ctx, "srv-1"); !errors.IsNoData(err) {
		t.Errorf("empty store error = %v, want no-data", err)
	}

	now := time.Now()
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now.Add(-time.Minute), 30))
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now, 60))

	snap, err := store.LatestSnapshot(ctx, "srv-1")
	if err != nil {
		t.Fatalf("LatestSnapshot() error: %v", err)
	}
	if snap.HealthData["fps"] != 60 {
		t.Errorf("fps = %v, want newest 60", snap.HealthData["fps"])
	}
}

func TestStore_CommandsFilterAndSearch(t *testing.T) {
	store := NewStore(Config{}, nil)
	ctx := context.Background()
	now := time.Now()

	store.StoreCommand(ctx, testCommand(t, "srv-1", "kick PlayerOne", "gp", now.Add(-2*time.Minute)))
	store.StoreCommand(ctx, testCommand(t, "srv-1", "say hello", "gp", now.Add(-time.Minute)))
	store.StoreCommand(ctx, testCommand(t, "srv-1", "backup world", "scheduler", now))

	admin, err := store.Commands(ctx, "srv-1", now.Add(-time.Hour), now, models.CommandTypeAdmin, 0)
	if err != nil {
		t.Fatalf("Commands() error: %v", err)
	}
	if len(admin) != 1 || admin[0].Command != "kick PlayerOne" {
		t.Errorf("admin filter = %v, want only the kick", admin)
	}

	found, err := store.SearchCommands(ctx, "srv-1", "SCHEDULER", 0)
	if err != nil {
		t.Fatalf("SearchCommands() error: %v", err)
	}
	if len(found) != 1 || found[0].User != "scheduler" {
		t.Errorf("search by user = %v, want the backup command", found)
	}

	found, err = store.SearchCommands(ctx, "srv-1", "hello", 0)
	if err != nil {
		t.Fatalf("SearchCommands() error: %v", err)
	}
	if len(found) != 1 || found[0].Command != "say hello" {
		t.Errorf("search by text = %v, want the say command", found)
	}
}

func TestStore_SweepDropsExpired(t *testing.T) {
	store := NewStore(Config{
		SnapshotRetention: time.Hour,
		SweepInterval:     time.Millisecond,
	}, nil)
	ctx := context.Background()
	now := time.Now()

	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now.Add(-2*time.Hour), 10))
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now, 60))

	store.Sweep()

	snaps, _ := store.Snapshots(ctx, "srv-1", now.Add(-24*time.Hour), now.Add(time.Hour), 0)
	if len(snaps) != 1 {
		t.Fatalf("len = %d after sweep, want 1", len(snaps))
	}
	if snaps[0].HealthData["fps"] != 60 {
		t.Errorf("surviving fps = %v, want 60", snaps[0].HealthData["fps"])
	}
}

func TestStore_GlobalCapTrimsOldestServersFirst(t *testing.T) {
	store := NewStore(Config{
		SnapshotsPerServer: 10,
		GlobalSnapshotCap:  15,
	}, nil)
	ctx := context.Background()
	now := time.Now()

	// srv-old written first, srv-new second.
	for i := 0; i < 10; i++ {
		store.StoreSnapshot(ctx, testSnapshot(t, "srv-old", now, 1))
	}
	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 10; i++ {
		store.StoreSnapshot(ctx, testSnapshot(t, "srv-new", now, 2))
	}

	store.Sweep()

	stats := store.Stats()
	if stats["snapshots"] > 15 {
		t.Errorf("snapshots = %d, want <= global cap 15", stats["snapshots"])
	}
	newSnaps, _ := store.Snapshots(ctx, "srv-new", now.Add(-time.Hour), now.Add(time.Hour), 0)
	if len(newSnaps) != 10 {
		t.Errorf("recently written server trimmed to %d, want untouched 10", len(newSnaps))
	}
}

func TestStore_TrendBuckets(t *testing.T) {
	store := NewStore(Config{}, nil)
	ctx := context.Background()
	now := time.Now().Truncate(time.Minute)

	// Two snapshots in one minute bucket, one in the next.
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now.Add(-2*time.Minute), 30))
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now.Add(-2*time.Minute+10*time.Second), 50))
	store.StoreSnapshot(ctx, testSnapshot(t, "srv-1", now.Add(-time.Minute), 60))

	buckets, err := store.TrendBuckets(ctx, "srv-1", 1)
	if err != nil {
		t.Fatalf("TrendBuckets() error: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("len = %d, want 2 buckets", len(buckets))
	}
	if buckets[0].Avg["fps"] != 40 {
		t.Errorf("bucket[0] avg fps = %v, want 40", buckets[0].Avg["fps"])
	}
	if buckets[0].Min["fps"] != 30 || buckets[0].Max["fps"] != 50 {
		t.Errorf("bucket[0] min/max = %v/%v, want 30/50", buckets[0].Min["fps"], buckets[0].Max["fps"])
	}
	if buckets[0].Count != 2 || buckets[1].Count != 1 {
		t.Errorf("counts = %d/%d, want 2/1", buckets[0].Count, buckets[1].Count)
	}
	if !buckets[0].BucketTime.Before(buckets[1].BucketTime) {
		t.Error("buckets must be ascending by time")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(Config{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			serverID := fmt.Sprintf("srv-%d", w%3)
			for i := 0; i < 100; i++ {
				store.StoreSnapshot(ctx, testSnapshot(t, serverID, time.Now(), float64(i)))
				store.LatestSnapshot(ctx, serverID)
				store.Snapshots(ctx, serverID, time.Now().Add(-time.Hour), time.Now(), 10)
			}
		}(w)
	}
	wg.Wait()
}
