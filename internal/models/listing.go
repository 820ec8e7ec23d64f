package models

import (
	"time"

	"github.com/madickediagne/LOGISEN/internal/utils"
)

// PropertyType is the kind of accommodation a listing offers. The stored
// values are the French labels the mobile client displays.
type PropertyType string

const (
	PropertyRoom      PropertyType = "Chambre"
	PropertyStudio    PropertyType = "Studio"
	PropertyApartment PropertyType = "Appartement"
)

// Valid reports whether the type is one of the known values.
func (p PropertyType) Valid() bool {
	return p == PropertyRoom || p == PropertyStudio || p == PropertyApartment
}

// Studio configurations.
const (
	StudioOneRoomBath  = "une_piece_sdb"
	StudioTwoRoomsBath = "deux_pieces_sdb"
)

// RoomDetails describes a single room offer.
type RoomDetails struct {
	BathroomPrivate bool `bson:"bathroom_private" json:"bathroom_private"`
	ToiletShared    bool `bson:"toilet_shared" json:"toilet_shared"`
	KitchenAccess   bool `bson:"kitchen_access" json:"kitchen_access"`
}

// StudioDetails describes a studio offer.
type StudioDetails struct {
	Config string `bson:"config,omitempty" json:"config,omitempty"` // StudioOneRoomBath or StudioTwoRoomsBath
}

// ApartmentDetails describes an apartment offer.
type ApartmentDetails struct {
	Bedrooms string `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
}

// ListingDetails is the per-type variant payload. Only the sub-struct
// matching the listing's Type is meaningful; the others stay nil.
type ListingDetails struct {
	Room      *RoomDetails      `bson:"chambre,omitempty" json:"chambre,omitempty"`
	Studio    *StudioDetails    `bson:"studio,omitempty" json:"studio,omitempty"`
	Apartment *ApartmentDetails `bson:"appartement,omitempty" json:"appartement,omitempty"`
}

// Listing is an accommodation offer published by a landlord. OwnerID is fixed
// at creation and never changes; every mutation path filters on it.
type Listing struct {
	ID        utils.SixID     `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   utils.SixID     `bson:"owner_id" json:"owner_id"`
	Title     string          `bson:"title" json:"title"`
	Desc      string          `bson:"desc" json:"desc"`
	Price     string          `bson:"price" json:"price"` // free text, e.g. "75 000 FCFA"
	Area      string          `bson:"area" json:"area"`   // neighborhood name
	Type      PropertyType    `bson:"type" json:"type"`
	Details   *ListingDetails `bson:"details,omitempty" json:"details,omitempty"`
	Phone     string          `bson:"phone" json:"phone"`
	Images    []string        `bson:"images" json:"images"` // public URLs, upload order = display order
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
	Deleted   bool            `bson:"deleted" json:"-"` // soft delete flag
}
