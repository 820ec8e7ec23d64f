package models

import (
	"time"

	"github.com/madickediagne/LOGISEN/internal/utils"
)

// Favorite bookmarks a listing for a student. The display fields are a
// snapshot taken when the favorite is created.
type Favorite struct {
	ID        utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    utils.SixID `bson:"user_id" json:"user_id"`
	ListingID utils.SixID `bson:"listing_id" json:"listing_id"`
	Title     string      `bson:"title" json:"title"`
	Desc      string      `bson:"desc" json:"desc"`
	Price     string      `bson:"price" json:"price"`
	Area      string      `bson:"area" json:"area"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}
