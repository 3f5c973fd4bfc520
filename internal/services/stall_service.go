package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ssnlakshya/mela/internal/cache"
	"github.com/ssnlakshya/mela/internal/config"
	"github.com/ssnlakshya/mela/internal/db"
	"github.com/ssnlakshya/mela/internal/models"
)

// IStallService owns the submission lifecycle: one active listing per owner,
// slug assignment on first save, and short-link synchronization.
type IStallService interface {
	Reconcile(ctx context.Context, ownerEmail string, payload models.StallPayload) (*models.Stall, string, error)
	FetchActive(ctx context.Context, ownerEmail string) (*models.Stall, error)
	DeleteAll(ctx context.Context, ownerEmail string) (int64, error)
	ListByCategory(ctx context.Context, category string) ([]models.PublicStall, error)
	GetBySlug(ctx context.Context, slug string) (*models.Stall, error)
}

// IShortLinkRetryEnqueuer schedules a short-link sync for background retry
// after the inline attempt failed. Implemented by the tasks package.
type IShortLinkRetryEnqueuer interface {
	EnqueueShortLinkSync(code, longURL string) error
}

const stallsCollection = "stalls"

type stallService struct {
	db         *mongo.Database
	cfg        *config.Config
	shortLinks IShortLinkService
	rdb        *redis.Client           // optional read cache; nil disables caching
	retryQueue IShortLinkRetryEnqueuer // optional; nil disables background retries
}

// NewStallService creates a new StallService.
func NewStallService(db *mongo.Database, cfg *config.Config, shortLinks IShortLinkService, rdb *redis.Client, retryQueue IShortLinkRetryEnqueuer) IStallService {
	return &stallService{db: db, cfg: cfg, shortLinks: shortLinks, rdb: rdb, retryQueue: retryQueue}
}

// Reconcile validates and persists an owner submission, then brings the
// external short link up to date. The listing write and the short-link write
// have no shared transaction: a failed sync leaves the save committed and is
// reported via ErrShortLinkSync alongside the saved record, with a background
// retry enqueued.
func (s *stallService) Reconcile(ctx context.Context, ownerEmail string, payload models.StallPayload) (*models.Stall, string, error) {
	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	payload.Normalize()

	if missing := payload.MissingFields(); len(missing) > 0 {
		return nil, "", &ValidationError{Fields: missing}
	}
	if !models.IsValidCategory(payload.Category) {
		return nil, "", &ValidationError{
			Fields: []string{"category"},
			Reason: fmt.Sprintf("category must be one of: %s", strings.Join(models.Categories, ", ")),
		}
	}
	if max := s.cfg.MaxGalleryImages; max > 0 && len(payload.Images) > max {
		return nil, "", &ValidationError{
			Fields: []string{"images"},
			Reason: fmt.Sprintf("at most %d gallery images allowed", max),
		}
	}
	for _, r := range payload.Reviews {
		if r.Rating < 0 || r.Rating > 5 {
			return nil, "", &ValidationError{
				Fields: []string{"reviews"},
				Reason: "review ratings must be between 0 and 5",
			}
		}
	}

	stall, err := s.save(ctx, ownerEmail, payload)
	if err != nil {
		return nil, "", err
	}

	s.invalidateCache(ctx, stall.Slug)

	// Category is mutable even though the slug is not, so the long URL is
	// recomputed from the current submission on every save.
	longURL := fmt.Sprintf("%s/%s/%s", s.cfg.SiteBaseURL, stall.Payload.Category, stall.Slug)
	shortURL := s.cfg.ShortLinkBaseURL + "/" + stall.Slug

	// A couple of quick retries paper over transient shortener hiccups before
	// falling back to the background queue.
	syncErr := db.WithRetries(func() error {
		_, err := s.shortLinks.Upsert(ctx, stall.Slug, longURL)
		return err
	}, 2, func(error) bool { return true })
	if syncErr != nil {
		log.Printf("WARN: short link sync failed for %s: %v", stall.Slug, syncErr)
		if s.retryQueue != nil {
			if enqErr := s.retryQueue.EnqueueShortLinkSync(stall.Slug, longURL); enqErr != nil {
				log.Printf("WARN: failed to enqueue short link retry for %s: %v", stall.Slug, enqErr)
			}
		}
		return stall, shortURL, fmt.Errorf("%w: %v", ErrShortLinkSync, syncErr)
	}

	return stall, shortURL, nil
}

// save decides create-vs-update. An existing document's slug is
// authoritative and reused verbatim; only a first-ever submission derives a
// new one.
func (s *stallService) save(ctx context.Context, ownerEmail string, payload models.StallPayload) (*models.Stall, error) {
	now := time.Now().UTC()

	existing, err := s.FetchActive(ctx, ownerEmail)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if existing != nil {
		return s.update(ctx, ownerEmail, payload, now)
	}

	base := Slugify(payload.Name)
	if base == "" {
		return nil, &ValidationError{
			Fields: []string{"name"},
			Reason: "name must contain at least one letter or number",
		}
	}

	collection := s.db.Collection(stallsCollection)
	var inserted *models.Stall
	_, err = ResolveUniqueSlug(base, func(candidate string) error {
		doc := &models.Stall{
			OwnerEmail: ownerEmail,
			Slug:       candidate,
			Payload:    payload,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, insertErr := collection.InsertOne(ctx, doc); insertErr != nil {
			return insertErr
		}
		inserted = doc
		return nil
	})
	if err != nil {
		// A concurrent first submission from the same owner may have won the
		// owner_email index; fold this attempt into an update of the winner's
		// document so one active listing per owner holds.
		if db.IsDuplicateKeyOnIndex(err, db.IndexStallOwnerEmail) {
			return s.update(ctx, ownerEmail, payload, now)
		}
		return nil, fmt.Errorf("failed to insert stall for %s: %w", ownerEmail, err)
	}

	return inserted, nil
}

// update replaces the payload in place. The slug field is deliberately not in
// the $set document.
func (s *stallService) update(ctx context.Context, ownerEmail string, payload models.StallPayload, now time.Time) (*models.Stall, error) {
	collection := s.db.Collection(stallsCollection)
	filter := bson.M{"owner_email": ownerEmail}
	updateDoc := bson.M{"$set": bson.M{
		"payload":    payload,
		"updated_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Stall
	if err := collection.FindOneAndUpdate(ctx, filter, updateDoc, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// The document vanished between lookup and update (concurrent
			// delete); surface as a storage failure, the caller can resubmit.
			return nil, fmt.Errorf("stall for %s disappeared during update: %w", ownerEmail, err)
		}
		return nil, fmt.Errorf("failed to update stall for %s: %w", ownerEmail, err)
	}
	return &updated, nil
}

// FetchActive returns the owner's listing, or mongo.ErrNoDocuments.
func (s *stallService) FetchActive(ctx context.Context, ownerEmail string) (*models.Stall, error) {
	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	var stall models.Stall
	err := s.db.Collection(stallsCollection).
		FindOne(ctx, bson.M{"owner_email": ownerEmail}).
		Decode(&stall)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding stall for %s: %w", ownerEmail, err)
	}
	return &stall, nil
}

// DeleteAll removes every document for the owner. Idempotent: zero deletions
// is a zero count, not an error. The short-link record is left in place; the
// shortener owns its retention and a dangling code resolves to the site's
// not-found page.
func (s *stallService) DeleteAll(ctx context.Context, ownerEmail string) (int64, error) {
	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))

	existing, err := s.FetchActive(ctx, ownerEmail)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}

	res, err := s.db.Collection(stallsCollection).DeleteMany(ctx, bson.M{"owner_email": ownerEmail})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stalls for %s: %w", ownerEmail, err)
	}

	if existing != nil {
		s.invalidateCache(ctx, existing.Slug)
	}

	return res.DeletedCount, nil
}

// ListByCategory returns every active stall, newest first, optionally
// filtered by category. The filter value is case-insensitive; stored
// categories are already canonical lowercase.
func (s *stallService) ListByCategory(ctx context.Context, category string) ([]models.PublicStall, error) {
	filter := bson.M{}
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" {
		filter["payload.category"] = category
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(stallsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalls: %w", err)
	}
	defer cur.Close(ctx)

	var stalls []models.Stall
	if err = cur.All(ctx, &stalls); err != nil {
		return nil, fmt.Errorf("failed to decode stalls: %w", err)
	}

	out := make([]models.PublicStall, 0, len(stalls))
	for i := range stalls {
		out = append(out, stalls[i].Public())
	}
	return out, nil
}

// GetBySlug returns the listing with the given slug, or mongo.ErrNoDocuments.
// Results pass through a short-TTL Redis cache when one is configured.
func (s *stallService) GetBySlug(ctx context.Context, slug string) (*models.Stall, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, mongo.ErrNoDocuments
	}

	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, cache.StallKey(slug)).Bytes(); err == nil {
			var cached models.Stall
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var stall models.Stall
	err := s.db.Collection(stallsCollection).
		FindOne(ctx, bson.M{"slug": slug}).
		Decode(&stall)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding stall %s: %w", slug, err)
	}

	if s.rdb != nil {
		if data, err := json.Marshal(&stall); err == nil {
			s.rdb.Set(ctx, cache.StallKey(slug), data, s.cfg.GetCacheTTL)
		}
	}

	return &stall, nil
}

func (s *stallService) invalidateCache(ctx context.Context, slug string) {
	if s.rdb == nil || slug == "" {
		return
	}
	if err := s.rdb.Del(ctx, cache.StallKey(slug)).Err(); err != nil {
		log.Printf("WARN: failed to invalidate cache for %s: %v", slug, err)
	}
}
