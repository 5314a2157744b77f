package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
)

func openAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.AutoMigrate(&models.UsageEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func waitForUsageRows(t *testing.T, database *gorm.DB, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int64
		if err := database.Model(&models.UsageEvent{}).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d usage rows", want)
}

func TestRecordMapsPayloadFields(t *testing.T) {
	database := openAnalyticsTestDB(t)
	recorder := NewRecorder(database, events.NewBus(), zerolog.Nop())

	recorder.Record(context.Background(), string(events.EventUsageRefreshScheduled), events.Payload{
		"user_id":    "user-1",
		"release_id": "rel-3",
		"reason":     "track-mutated",
		"regions":    []string{"global"},
	})

	var event models.UsageEvent
	if err := database.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Name != string(events.EventUsageRefreshScheduled) {
		t.Fatalf("unexpected name %q", event.Name)
	}
	if event.UserID == nil || *event.UserID != "user-1" {
		t.Fatalf("expected user-1, got %v", event.UserID)
	}
	if event.Target != "rel-3" {
		t.Fatalf("expected release id as target, got %q", event.Target)
	}
	if event.Details["reason"] != "track-mutated" {
		t.Fatalf("expected reason in details, got %v", event.Details)
	}
	if _, ok := event.Details["release_id"]; ok {
		t.Fatalf("release_id must not be duplicated into details")
	}
	if event.ID == "" || event.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at populated")
	}
}

func TestRecordWithoutUserIsSystemEvent(t *testing.T) {
	database := openAnalyticsTestDB(t)
	recorder := NewRecorder(database, events.NewBus(), zerolog.Nop())

	recorder.Record(context.Background(), string(events.EventUsageRefreshDispatch), events.Payload{
		"task_count": 4,
	})

	var event models.UsageEvent
	if err := database.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.UserID != nil {
		t.Fatalf("expected nil user id, got %v", *event.UserID)
	}
}

func TestStartPersistsPublishedEvents(t *testing.T) {
	database := openAnalyticsTestDB(t)
	bus := events.NewBus()
	recorder := NewRecorder(database, bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go recorder.Start(ctx)
	time.Sleep(20 * time.Millisecond) // let Start subscribe

	bus.Publish(events.EventUsageSearch, events.Payload{"query": "echo"})
	bus.Publish(events.EventUsagePersonalizationApplied, events.Payload{"user_id": "user-1", "query": "echo"})
	bus.Publish(events.EventUsageProfileUnavailable, events.Payload{"user_id": "user-2", "query": "echo"})

	waitForUsageRows(t, database, 3)

	var names []string
	if err := database.Model(&models.UsageEvent{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		t.Fatalf("pluck names: %v", err)
	}
	want := map[string]bool{
		string(events.EventUsageSearch):                 false,
		string(events.EventUsagePersonalizationApplied): false,
		string(events.EventUsageProfileUnavailable):     false,
	}
	for _, name := range names {
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("expected %s recorded", name)
		}
	}
}
