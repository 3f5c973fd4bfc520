package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, IsValidCategory(c))
	}
	assert.False(t, IsValidCategory("beverages"))
	assert.False(t, IsValidCategory("Food"), "callers must normalize case first")
	assert.False(t, IsValidCategory(""))
}

func TestStallPayload_Normalize(t *testing.T) {
	p := StallPayload{
		Name:       "  Chaat Corner ",
		Category:   " FOOD ",
		OwnerName:  " Rajesh ",
		OwnerPhone: " +91 98400 ",
	}
	p.Normalize()
	assert.Equal(t, "Chaat Corner", p.Name)
	assert.Equal(t, "food", p.Category)
	assert.Equal(t, "Rajesh", p.OwnerName)
	assert.Equal(t, "+91 98400", p.OwnerPhone)
}

func TestStallPayload_MissingFieldsOrder(t *testing.T) {
	var p StallPayload
	assert.Equal(t,
		[]string{"name", "category", "description", "bannerImage", "ownerName", "ownerPhone"},
		p.MissingFields())

	p = StallPayload{Name: "X", Category: "food", Description: "d", BannerImage: "b", OwnerName: "o", OwnerPhone: "p"}
	assert.Empty(t, p.MissingFields())

	// Whitespace-only values count as missing.
	p.Description = "   "
	assert.Equal(t, []string{"description"}, p.MissingFields())
}

func TestStall_PublicOmitsOwnerEmail(t *testing.T) {
	s := Stall{OwnerEmail: "owner@ssn.edu.in", Slug: "chaat-corner", Payload: StallPayload{Name: "Chaat Corner"}}
	pub := s.Public()
	assert.Equal(t, "chaat-corner", pub.Slug)
	assert.Equal(t, "Chaat Corner", pub.Name)
}
