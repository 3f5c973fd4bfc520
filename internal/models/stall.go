package models

import (
	"strings"
	"time"
)

// Stall categories. The enumeration is closed; anything else is a validation
// failure, never coerced.
const (
	CategoryFood        = "food"
	CategoryAccessories = "accessories"
	CategoryGames       = "games"
)

// Categories lists the valid stall categories.
var Categories = []string{CategoryFood, CategoryAccessories, CategoryGames}

// IsValidCategory reports whether c is one of the enumerated categories.
// The caller is expected to have normalized case already.
func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Item is a single menu/catalogue entry. Price is free text (the festival
// sells in "₹50" style strings, not decimals).
type Item struct {
	Name  string `bson:"name" json:"name"`
	Price string `bson:"price" json:"price"`
}

// LimitedTimeOffer is a promotion with an optional expiry.
type LimitedTimeOffer struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ValidTill   string `bson:"valid_till,omitempty" json:"validTill,omitempty"`
}

// Review is a visitor review carried inside the stall payload.
type Review struct {
	User    string  `bson:"user" json:"user"`
	Rating  float64 `bson:"rating" json:"rating"` // 0–5
	Comment string  `bson:"comment" json:"comment"`
}

// StallPayload is the owner-editable document. JSON field names match the
// public site's payload shape; BSON names follow the store's snake_case
// convention.
type StallPayload struct {
	Name        string `bson:"name" json:"name"`
	Category    string `bson:"category" json:"category"`
	Description string `bson:"description" json:"description"`

	BannerImage string   `bson:"banner_image" json:"bannerImage"`
	LogoImage   string   `bson:"logo_image,omitempty" json:"logoImage,omitempty"`
	Images      []string `bson:"images" json:"images"`

	OwnerName  string `bson:"owner_name" json:"ownerName"`
	OwnerPhone string `bson:"owner_phone" json:"ownerPhone"`
	Instagram  string `bson:"instagram,omitempty" json:"instagram,omitempty"`

	Items            []Item             `bson:"items" json:"items"`
	Highlights       []string           `bson:"highlights" json:"highlights"`
	BestSellers      []string           `bson:"best_sellers" json:"bestSellers"`
	Offers           []string           `bson:"offers" json:"offers"`
	AvailableAt      []string           `bson:"available_at" json:"availableAt"`
	StallNumber      string             `bson:"stall_number,omitempty" json:"stallNumber,omitempty"`
	PaymentMethods   []string           `bson:"payment_methods" json:"paymentMethods"`
	LimitedTimeOffers []LimitedTimeOffer `bson:"limited_time_offers" json:"limitedTimeOffers"`
	Reviews          []Review           `bson:"reviews" json:"reviews"`
}

// Normalize canonicalizes the fields that identify and route the stall.
// Optional collections are left nil; BSON round-trips them as empty.
func (p *StallPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	p.Description = strings.TrimSpace(p.Description)
	p.OwnerName = strings.TrimSpace(p.OwnerName)
	p.OwnerPhone = strings.TrimSpace(p.OwnerPhone)
}

// MissingFields returns the names of required fields that are absent or
// empty, in the order the write endpoint reports them.
func (p *StallPayload) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"category", p.Category},
		{"description", p.Description},
		{"bannerImage", p.BannerImage},
		{"ownerName", p.OwnerName},
		{"ownerPhone", p.OwnerPhone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Stall is one owner's listing. Exactly one document exists per owner email
// (unique index); the slug is assigned on first save and never changes.
type Stall struct {
	OwnerEmail string       `bson:"owner_email" json:"-"`
	Slug       string       `bson:"slug" json:"slug"`
	Payload    StallPayload `bson:"payload" json:"payload"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `bson:"updated_at" json:"updated_at"`
}

// PublicStall is the payload as the site consumes it, with the authoritative
// slug spliced in. Whatever slug-like value the owner submitted inside the
// payload is irrelevant; the stored one wins.
type PublicStall struct {
	Slug string `json:"slug"`
	StallPayload
}

// Public flattens the stall for the anonymous read endpoints.
func (s *Stall) Public() PublicStall {
	return PublicStall{Slug: s.Slug, StallPayload: s.Payload}
}
