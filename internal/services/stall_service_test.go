package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ssnlakshya/mela/internal/config"
	"github.com/ssnlakshya/mela/internal/db"
	"github.com/ssnlakshya/mela/internal/models"
	"github.com/ssnlakshya/mela/internal/utils"
)

func setupTestDBStalls(t *testing.T, dbName string) *mongo.Database {
	mdb := utils.SetupTestDB(t, dbName, "stalls", "allowed_owners", "allowed_clubs")
	require.NoError(t, db.EnsureIndexes(context.Background(), mdb))
	return mdb
}

func stallTestConfig() *config.Config {
	return &config.Config{
		SiteBaseURL:      "https://lakshya.ssn.edu.in",
		ShortLinkBaseURL: "https://ssn.lat",
		MaxGalleryImages: 10,
	}
}

// memShortLinks is an in-memory IShortLinkService. When failing is set every
// Upsert errors, exercising the partial-success path.
type memShortLinks struct {
	mu      sync.Mutex
	links   map[string]string
	failing bool
}

func newMemShortLinks() *memShortLinks {
	return &memShortLinks{links: make(map[string]string)}
}

func (m *memShortLinks) Upsert(ctx context.Context, code, longURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false, errors.New("shortener unreachable")
	}
	_, existed := m.links[code]
	m.links[code] = longURL
	return !existed, nil
}

func (m *memShortLinks) get(code string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.links[code]
	return v, ok
}

type recordingEnqueuer struct {
	codes []string
	urls  []string
}

func (r *recordingEnqueuer) EnqueueShortLinkSync(code, longURL string) error {
	r.codes = append(r.codes, code)
	r.urls = append(r.urls, longURL)
	return nil
}

func validPayload(name string) models.StallPayload {
	return models.StallPayload{
		Name:        name,
		Category:    models.CategoryFood,
		Description: "Crisp tangy street food",
		BannerImage: "stalls/banner.jpg",
		OwnerName:   "Rajesh",
		OwnerPhone:  "+919840000000",
	}
}

func TestStallService_ReconcileCreatesWithSlugAndShortLink(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_create")
	links := newMemShortLinks()
	svc := NewStallService(mdb, stallTestConfig(), links, nil, nil)
	ctx := context.Background()

	stall, shortURL, err := svc.Reconcile(ctx, "Owner@SSN.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)
	require.NotNil(t, stall)
	assert.Equal(t, "chaat-corner", stall.Slug)
	assert.Equal(t, "owner@ssn.edu.in", stall.OwnerEmail)
	assert.Equal(t, "https://ssn.lat/chaat-corner", shortURL)
	assert.False(t, stall.CreatedAt.IsZero())

	long, ok := links.get("chaat-corner")
	require.True(t, ok)
	assert.Equal(t, "https://lakshya.ssn.edu.in/food/chaat-corner", long)
}

func TestStallService_ReconcileUpdateKeepsSlug(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_update")
	links := newMemShortLinks()
	svc := NewStallService(mdb, stallTestConfig(), links, nil, nil)
	ctx := context.Background()

	first, _, err := svc.Reconcile(ctx, "owner@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)

	// Renaming the stall must not change its slug or add a document.
	renamed := validPayload("Totally Different Name")
	renamed.Category = models.CategoryGames
	second, shortURL, err := svc.Reconcile(ctx, "owner@ssn.edu.in", renamed)
	require.NoError(t, err)
	assert.Equal(t, first.Slug, second.Slug)
	assert.Equal(t, "https://ssn.lat/chaat-corner", shortURL)
	assert.Equal(t, "Totally Different Name", second.Payload.Name)

	count, err := mdb.Collection("stalls").CountDocuments(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The short link destination follows the category change.
	long, _ := links.get("chaat-corner")
	assert.Equal(t, "https://lakshya.ssn.edu.in/games/chaat-corner", long)
}

func TestStallService_ReconcileValidation(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_validation")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	t.Run("missing required fields", func(t *testing.T) {
		_, _, err := svc.Reconcile(ctx, "owner@ssn.edu.in", models.StallPayload{Name: "X"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"category", "description", "bannerImage", "ownerName", "ownerPhone"}, verr.Fields)
	})

	t.Run("unknown category", func(t *testing.T) {
		p := validPayload("Chaat Corner")
		p.Category = "Beverages"
		_, _, err := svc.Reconcile(ctx, "owner@ssn.edu.in", p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"category"}, verr.Fields)
	})

	t.Run("category is case-insensitive", func(t *testing.T) {
		p := validPayload("Case Stall")
		p.Category = "  FOOD "
		stall, _, err := svc.Reconcile(ctx, "case@ssn.edu.in", p)
		require.NoError(t, err)
		assert.Equal(t, models.CategoryFood, stall.Payload.Category)
	})

	t.Run("name with no alphanumerics", func(t *testing.T) {
		p := validPayload("!!!")
		_, _, err := svc.Reconcile(ctx, "punct@ssn.edu.in", p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"name"}, verr.Fields)
	})

	t.Run("gallery over limit", func(t *testing.T) {
		p := validPayload("Gallery Stall")
		for i := 0; i < 11; i++ {
			p.Images = append(p.Images, "img.jpg")
		}
		_, _, err := svc.Reconcile(ctx, "gallery@ssn.edu.in", p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"images"}, verr.Fields)
	})

	t.Run("review rating out of range", func(t *testing.T) {
		p := validPayload("Review Stall")
		p.Reviews = []models.Review{{User: "a", Rating: 5.5}}
		_, _, err := svc.Reconcile(ctx, "review@ssn.edu.in", p)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"reviews"}, verr.Fields)
	})
}

func TestStallService_SlugCollisionGetsSuffix(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_collision")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	first, _, err := svc.Reconcile(ctx, "first@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)
	assert.Equal(t, "chaat-corner", first.Slug)

	second, shortURL, err := svc.Reconcile(ctx, "second@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)
	assert.Equal(t, "chaat-corner-2", second.Slug)
	assert.Equal(t, "https://ssn.lat/chaat-corner-2", shortURL)
}

func TestStallService_SyncFailureReturnsSavedStall(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_syncfail")
	links := newMemShortLinks()
	links.failing = true
	queue := &recordingEnqueuer{}
	svc := NewStallService(mdb, stallTestConfig(), links, nil, queue)
	ctx := context.Background()

	stall, shortURL, err := svc.Reconcile(ctx, "owner@ssn.edu.in", validPayload("Chaat Corner"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortLinkSync)

	// The listing write committed even though the sync failed.
	require.NotNil(t, stall)
	assert.Equal(t, "chaat-corner", stall.Slug)
	assert.Equal(t, "https://ssn.lat/chaat-corner", shortURL)
	saved, ferr := svc.FetchActive(ctx, "owner@ssn.edu.in")
	require.NoError(t, ferr)
	assert.Equal(t, "chaat-corner", saved.Slug)

	// A retry was handed to the background queue.
	require.Len(t, queue.codes, 1)
	assert.Equal(t, "chaat-corner", queue.codes[0])
	assert.Equal(t, "https://lakshya.ssn.edu.in/food/chaat-corner", queue.urls[0])
}

func TestStallService_FetchActiveAndDelete(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_delete")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	_, err := svc.FetchActive(ctx, "nobody@ssn.edu.in")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, _, err = svc.Reconcile(ctx, "owner@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)

	deleted, err := svc.DeleteAll(ctx, "owner@ssn.edu.in")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Deleting again is a no-op, not an error.
	deleted, err = svc.DeleteAll(ctx, "owner@ssn.edu.in")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	_, err = svc.FetchActive(ctx, "owner@ssn.edu.in")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestStallService_SlugFreedAfterDelete(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_slugfree")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	_, _, err := svc.Reconcile(ctx, "first@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)
	_, err = svc.DeleteAll(ctx, "first@ssn.edu.in")
	require.NoError(t, err)

	stall, _, err := svc.Reconcile(ctx, "second@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)
	assert.Equal(t, "chaat-corner", stall.Slug)
}

func TestStallService_ListByCategory(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_list")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	food := validPayload("Chaat Corner")
	_, _, err := svc.Reconcile(ctx, "food@ssn.edu.in", food)
	require.NoError(t, err)

	games := validPayload("Ring Toss")
	games.Category = models.CategoryGames
	_, _, err = svc.Reconcile(ctx, "games@ssn.edu.in", games)
	require.NoError(t, err)

	all, err := svc.ListByCategory(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Filter value is matched case-insensitively.
	onlyGames, err := svc.ListByCategory(ctx, "GAMES")
	require.NoError(t, err)
	require.Len(t, onlyGames, 1)
	assert.Equal(t, "ring-toss", onlyGames[0].Slug)

	none, err := svc.ListByCategory(ctx, "accessories")
	require.NoError(t, err)
	assert.Len(t, none, 0)
}

func TestStallService_GetBySlug(t *testing.T) {
	mdb := setupTestDBStalls(t, "testdb_stall_service_getslug")
	svc := NewStallService(mdb, stallTestConfig(), newMemShortLinks(), nil, nil)
	ctx := context.Background()

	_, _, err := svc.Reconcile(ctx, "owner@ssn.edu.in", validPayload("Chaat Corner"))
	require.NoError(t, err)

	stall, err := svc.GetBySlug(ctx, "  Chaat-Corner ")
	require.NoError(t, err)
	assert.Equal(t, "chaat-corner", stall.Slug)

	_, err = svc.GetBySlug(ctx, "no-such-stall")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = svc.GetBySlug(ctx, "")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
