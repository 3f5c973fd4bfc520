package services

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a submission before anything is written. Fields
// names the offending payload fields as the API reports them.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// ErrShortLinkSync marks the partial-success outcome: the listing write
// committed but the short-link record could not be brought in sync. The save
// is not rolled back; callers report the two results separately.
var ErrShortLinkSync = errors.New("short link sync failed")

// ErrSlugExhausted is returned when no free suffix could be found for a slug
// base within the attempt bound.
var ErrSlugExhausted = errors.New("could not find a free slug")
