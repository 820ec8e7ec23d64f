package services

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/madickediagne/LOGISEN/internal/models"
)

// ListingFilter is the composable search filter applied to listings. A zero
// value matches everything; each set field narrows the result and the fields
// combine as a conjunction.
type ListingFilter struct {
	Query    string               // case-insensitive substring on title and area
	MaxPrice *int                 // upper bound in FCFA, applied to the parsed price
	Type     *models.PropertyType // exact match
	Campus   string               // restricts to the campus's mapped neighborhoods
}

// Match reports whether the listing passes every set filter.
func (f ListingFilter) Match(l *models.Listing) bool {
	if q := strings.TrimSpace(f.Query); q != "" {
		q = strings.ToLower(q)
		title := strings.ToLower(l.Title)
		area := strings.ToLower(l.Area)
		if !strings.Contains(title, q) && !strings.Contains(area, q) {
			return false
		}
	}

	if f.MaxPrice != nil {
		// An unparseable price cannot be compared, so it passes through
		// rather than silently hiding the listing.
		if amount, ok := ParsePriceAmount(l.Price); ok && amount > *f.MaxPrice {
			return false
		}
	}

	if f.Type != nil && l.Type != *f.Type {
		return false
	}

	if models.CampusFiltersByArea(f.Campus) {
		allowed := models.AreasForCampus(f.Campus)
		found := false
		for _, area := range allowed {
			if strings.EqualFold(area, l.Area) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// ParsePriceAmount extracts the numeric amount from a free-text price such
// as "75 000 FCFA" or "50000F/mois". Whitespace inside the number is
// dropped and the first run of digits is taken; anything after it is
// ignored. Returns false when no digits are present.
func ParsePriceAmount(price string) (int, bool) {
	var b strings.Builder
	for _, r := range price {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	compact := b.String()

	start := -1
	for i, r := range compact {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(compact) && compact[end] >= '0' && compact[end] <= '9' {
		end++
	}

	amount, err := strconv.Atoi(compact[start:end])
	if err != nil {
		return 0, false
	}
	return amount, true
}
