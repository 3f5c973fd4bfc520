package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// IAllowlistService answers whether an authenticated identity may write stall
// data. Two allow-lists exist: stall owners and clubs; membership in either
// grants access.
type IAllowlistService interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
}

const (
	allowedOwnersCollection = "allowed_owners"
	allowedClubsCollection  = "allowed_clubs"
)

type allowlistService struct {
	db *mongo.Database
}

// NewAllowlistService creates a new AllowlistService.
func NewAllowlistService(db *mongo.Database) IAllowlistService {
	return &allowlistService{db: db}
}

// IsAllowed checks the owners list first, then the clubs list. No side
// effects; a miss in both is a plain false, not an error.
func (s *allowlistService) IsAllowed(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}

	for _, coll := range []string{allowedOwnersCollection, allowedClubsCollection} {
		err := s.db.Collection(coll).FindOne(ctx, bson.M{"email": email}).Err()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return false, fmt.Errorf("allowlist lookup failed for %s: %w", coll, err)
		}
	}

	return false, nil
}
