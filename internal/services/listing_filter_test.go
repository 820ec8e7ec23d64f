package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madickediagne/LOGISEN/internal/models"
)

func TestParsePriceAmount(t *testing.T) {
	cases := []struct {
		price  string
		amount int
		ok     bool
	}{
		{"50000", 50000, true},
		{"75 000 FCFA", 75000, true},
		{"75 000FCFA/mois", 75000, true},
		{"FCFA 60 000", 60000, true},
		{"environ 45 000, charges comprises", 45000, true},
		{"prix à discuter", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		amount, ok := ParsePriceAmount(tc.price)
		assert.Equal(t, tc.ok, ok, "price %q", tc.price)
		if tc.ok {
			assert.Equal(t, tc.amount, amount, "price %q", tc.price)
		}
	}
}

func testListing(title, price, area string, ptype models.PropertyType) *models.Listing {
	return &models.Listing{Title: title, Price: price, Area: area, Type: ptype}
}

func TestListingFilter_ZeroValueMatchesAll(t *testing.T) {
	var f ListingFilter
	assert.True(t, f.Match(testListing("Chambre à Fann", "50000", "Fann", models.PropertyRoom)))
	assert.True(t, f.Match(testListing("Studio", "prix à discuter", "Pikine", models.PropertyStudio)))
}

func TestListingFilter_Query(t *testing.T) {
	f := ListingFilter{Query: "fann"}
	assert.True(t, f.Match(testListing("Chambre à Fann", "50000", "Fann", models.PropertyRoom)), "matches area")
	assert.True(t, f.Match(testListing("Proche Fann Hock", "50000", "Ouakam", models.PropertyRoom)), "matches title")
	assert.False(t, f.Match(testListing("Studio moderne", "50000", "Almadies", models.PropertyStudio)))
}

func TestListingFilter_MaxPrice(t *testing.T) {
	max := 50000
	f := ListingFilter{MaxPrice: &max}

	assert.True(t, f.Match(testListing("A", "45 000 FCFA", "Fann", models.PropertyRoom)))
	assert.True(t, f.Match(testListing("B", "50000", "Fann", models.PropertyRoom)))
	assert.False(t, f.Match(testListing("C", "75 000 FCFA", "Fann", models.PropertyRoom)))
	// Unparseable prices cannot be compared and pass through.
	assert.True(t, f.Match(testListing("D", "prix à discuter", "Fann", models.PropertyRoom)))
}

func TestListingFilter_Type(t *testing.T) {
	studio := models.PropertyStudio
	f := ListingFilter{Type: &studio}

	assert.True(t, f.Match(testListing("A", "50000", "Fann", models.PropertyStudio)))
	assert.False(t, f.Match(testListing("B", "50000", "Fann", models.PropertyRoom)))
}

func TestListingFilter_Campus(t *testing.T) {
	f := ListingFilter{Campus: "UCAD"}
	assert.True(t, f.Match(testListing("A", "50000", "Fann", models.PropertyRoom)))
	assert.True(t, f.Match(testListing("B", "50000", "Point E", models.PropertyRoom)))
	assert.False(t, f.Match(testListing("C", "50000", "Almadies", models.PropertyRoom)))

	// A campus outside Dakar has no mapped neighborhoods; the filter is a no-op.
	f = ListingFilter{Campus: "UGB"}
	assert.True(t, f.Match(testListing("D", "50000", "Almadies", models.PropertyRoom)))

	// Unknown campus behaves the same.
	f = ListingFilter{Campus: "Université Inconnue"}
	assert.True(t, f.Match(testListing("E", "50000", "Almadies", models.PropertyRoom)))
}

func TestListingFilter_Conjunction(t *testing.T) {
	max := 60000
	room := models.PropertyRoom
	f := ListingFilter{Query: "chambre", MaxPrice: &max, Type: &room, Campus: "UCAD"}

	assert.True(t, f.Match(testListing("Chambre propre", "55 000 FCFA", "Fann", models.PropertyRoom)))
	// Each violated condition rules the listing out on its own.
	assert.False(t, f.Match(testListing("Studio propre", "55 000 FCFA", "Fann", models.PropertyStudio)))
	assert.False(t, f.Match(testListing("Chambre propre", "65 000 FCFA", "Fann", models.PropertyRoom)))
	assert.False(t, f.Match(testListing("Chambre propre", "55 000 FCFA", "Pikine", models.PropertyRoom)))
}
