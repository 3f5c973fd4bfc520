package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ssnlakshya/mela/internal/db"
)

// Quote characters are dropped entirely so "Rajesh's Chaat" becomes
// "rajeshs-chaat" rather than "rajesh-s-chaat".
var slugQuoteStripper = strings.NewReplacer(
	"'", "", "’", "", "‘", "",
	`"`, "", "“", "", "”", "",
	"`", "",
)

var slugSeparatorRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe base identifier from a display name:
// lowercase, trimmed, quotes stripped, every run of non-alphanumerics
// collapsed to a single hyphen, leading/trailing hyphens removed. The result
// may be empty (all-punctuation names); callers must treat that as a
// validation failure, never as a usable slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugQuoteStripper.Replace(s)
	s = slugSeparatorRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// maxSlugAttempts bounds the suffix search. Listing counts are low hundreds
// at most; hitting this bound means something else is wrong.
const maxSlugAttempts = 50

// ResolveUniqueSlug claims a globally unique slug derived from base by
// calling claim with base, base-2, base-3, ... until one attempt succeeds.
// claim must attempt the actual insert so the unique index arbitrates; a
// duplicate-key error on the slug index advances to the next suffix, any
// other error aborts. Under concurrent registration of the same base exactly
// one caller wins each candidate.
func ResolveUniqueSlug(base string, claim func(candidate string) error) (string, error) {
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := claim(candidate)
		if err == nil {
			return candidate, nil
		}
		if db.IsDuplicateKeyOnIndex(err, db.IndexStallSlug) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("%w: base %q after %d attempts", ErrSlugExhausted, base, maxSlugAttempts)
}
