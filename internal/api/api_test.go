package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/actor"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/audit"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/catalog"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/models"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/refresh"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/search"
)

func newTestRouter(t *testing.T) (chi.Router, *gorm.DB) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.AutoMigrate(
		&models.Release{},
		&models.ReleaseTrack{},
		&models.ReleaseSignal{},
		&models.TrackSignal{},
		&models.ListenerProfile{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	logger := zerolog.Nop()
	repo := catalog.NewRepository(database, nil, time.Minute, logger)
	searchSvc := search.NewService(repo, bus, logger)
	scheduler := refresh.NewScheduler(bus, logger)
	watcher := refresh.NewWatcher(scheduler, bus, refresh.NewLogDispatcher(logger), repo, time.Minute, logger)
	auditSvc := audit.NewService(database, bus, logger)

	router := chi.NewRouter()
	New(searchSvc, scheduler, watcher, auditSvc, logger).RegisterRoutes(router)
	return router, database
}

func TestSearchRequiresQuery(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error code in body")
	}
}

func TestSearchRejectsOutOfRangeTake(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, take := range []string{"0", "51", "-3", "abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=echo&take="+take, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("take=%s: expected 400, got %d", take, rec.Code)
		}
	}
}

func TestSearchReturnsWellFormedResponse(t *testing.T) {
	router, database := newTestRouter(t)

	if err := database.Create(&models.Release{
		ID:          "rel-1",
		Title:       "Echo Alpha",
		CreatorID:   "creator-a",
		ReleaseType: models.ReleaseTypeAlbum,
		CreatedAt:   time.Now().AddDate(0, 0, -3),
	}).Error; err != nil {
		t.Fatalf("seed release: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=echo", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Releases) != 1 || resp.Releases[0].Release.ID != "rel-1" {
		t.Fatalf("unexpected releases: %+v", resp.Releases)
	}
	if resp.Meta.Region != search.DefaultRegion {
		t.Fatalf("expected default region, got %q", resp.Meta.Region)
	}
}

func TestSearchActorOverridesUserParam(t *testing.T) {
	router, database := newTestRouter(t)

	if err := database.Create(&models.ListenerProfile{
		UserID:           "ctx-user",
		FavoriteGenres:   []string{"afro"},
		FollowedCreators: []string{},
	}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/search?q=echo&personalized=true&user_id=query-user", nil)
	req = req.WithContext(actor.WithUserID(req.Context(), "ctx-user"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// The context user has a profile; the query-string user does not. Applied
	// proves the context identity won.
	if !resp.Meta.Personalization.Applied {
		t.Fatalf("expected personalization applied for context user, got %+v", resp.Meta.Personalization)
	}
}

func TestReindexSchedulesAllReleases(t *testing.T) {
	router, database := newTestRouter(t)

	for _, id := range []string{"rel-1", "rel-2"} {
		if err := database.Create(&models.Release{ID: id, Title: id, CreatorID: "c", ReleaseType: models.ReleaseTypeSingle}).Error; err != nil {
			t.Fatalf("seed release: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/reindex", strings.NewReader(`{"regions":["us"]}`)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["scheduled"] != 2 {
		t.Fatalf("expected 2 scheduled, got %d", body["scheduled"])
	}
}

func TestRefreshQueueReportsPending(t *testing.T) {
	router, database := newTestRouter(t)

	if err := database.Create(&models.Release{ID: "rel-1", Title: "t", CreatorID: "c", ReleaseType: models.ReleaseTypeSingle}).Error; err != nil {
		t.Fatalf("seed release: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/reindex", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("reindex: expected 202, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/refresh-queue", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Pending int      `json:"pending"`
		Keys    []string `json:"keys"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Pending != 1 || len(body.Keys) != 1 {
		t.Fatalf("expected one pending task, got %+v", body)
	}
}

func TestAuditQueryEndpoint(t *testing.T) {
	router, database := newTestRouter(t)

	userID := "user-1"
	entries := []models.AuditLog{
		{ID: "a1", Action: models.AuditActionCatalogSearch, Timestamp: time.Now().Add(-time.Minute), UserID: &userID, Details: map[string]any{}},
		{ID: "a2", Action: models.AuditActionFullRebuild, Timestamp: time.Now(), Details: map[string]any{}},
	}
	for i := range entries {
		if err := database.Create(&entries[i]).Error; err != nil {
			t.Fatalf("seed audit entry: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?user_id=user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Logs  []models.AuditLog `json:"logs"`
		Total int64             `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 1 || len(body.Logs) != 1 || body.Logs[0].ID != "a1" {
		t.Fatalf("expected only user-1 entries, got %+v", body)
	}
}
