package utils

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SixIDHookFunc is the signature of the NewSixID test hook. When the returned
// override flag is true, the returned id is used instead of a random one.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook can be set by tests to make id generation deterministic.
var NewSixIDHook SixIDHookFunc

// SixID is a 6-byte identifier stored in MongoDB as BinData with custom
// subtype 0x80 and rendered as 10 characters of Crockford Base32.
type SixID [6]byte

// NewSixID returns a new random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, override := NewSixIDHook(); override {
			return id
		}
	}

	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		// rand failure leaves the zero id; callers treat that as "unset"
		return SixID{}
	}
	return id
}

// IsZero reports whether the id is the zero value.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// Crockford Base32 alphabet (uppercase, no I, L, O, U).
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecodeMap map[byte]byte

func init() {
	crockfordDecodeMap = make(map[byte]byte, 40)
	for i := range crockfordAlphabet {
		crockfordDecodeMap[crockfordAlphabet[i]] = byte(i)
	}
	lower := strings.ToLower(crockfordAlphabet)
	for i := range lower {
		if i >= 10 {
			crockfordDecodeMap[lower[i]] = byte(i)
		}
	}
	// commonly confused characters
	crockfordDecodeMap['o'] = crockfordDecodeMap['O']
	crockfordDecodeMap['i'] = crockfordDecodeMap['1']
	crockfordDecodeMap['l'] = crockfordDecodeMap['1']
}

// String returns the Crockford Base32 representation (10 characters).
func (u SixID) String() string {
	// 6 bytes = 48 bits = ceil(48/5) = 10 base32 characters
	result := make([]byte, 10)
	var bits, offset uint
	n := 0

	for i := 0; i < 6; i++ {
		bits |= uint(u[i]) << offset
		offset += 8
		for offset >= 5 {
			result[n] = crockfordAlphabet[bits&0x1F]
			n++
			bits >>= 5
			offset -= 5
		}
	}
	if offset > 0 {
		result[n] = crockfordAlphabet[bits&0x1F]
		n++
	}
	return string(result[:n])
}

// ParseSixID parses a Crockford Base32 string into a SixID. Hyphens and
// spaces are tolerated; an empty string parses to the zero id.
func ParseSixID(s string) (SixID, error) {
	if s == "" {
		return SixID{}, nil
	}
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 10 {
		return SixID{}, errors.New("invalid SixID: length must be 10")
	}

	var bits uint64
	var offset uint
	var id SixID
	byteIndex := 0

	for i := 0; i < 10; i++ {
		val, ok := crockfordDecodeMap[s[i]]
		if !ok {
			return SixID{}, errors.New("invalid SixID: bad character")
		}
		bits |= uint64(val) << offset
		offset += 5
		for offset >= 8 && byteIndex < 6 {
			id[byteIndex] = byte(bits & 0xFF)
			byteIndex++
			bits >>= 8
			offset -= 8
		}
	}
	if byteIndex != 6 {
		return SixID{}, errors.New("invalid SixID: could not decode 6 bytes")
	}
	return id, nil
}

// MarshalBSONValue stores the id as BinData subtype 0x80.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{Subtype: 0x80, Data: u[:]})
}

// UnmarshalBSONValue reads BinData subtype 0x80 back into the id.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull {
		*u = SixID{}
		return nil
	}
	raw := bson.RawValue{Type: t, Value: data}
	var bin primitive.Binary
	if err := raw.Unmarshal(&bin); err != nil {
		return errors.New("invalid BSON value for SixID: expected binary")
	}
	if bin.Subtype != 0x80 || len(bin.Data) != 6 {
		return errors.New("invalid BSON binary for SixID: wrong subtype or length")
	}
	copy((*u)[:], bin.Data)
	return nil
}

// MarshalJSON renders the id as its Crockford Base32 string.
func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON parses the Crockford Base32 string form.
func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
