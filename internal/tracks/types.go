package tracks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Payload is the canonical form of a purchased track as delivered by the store.
type Payload struct {
	Item        string `dynamodbav:"item" json:"item"`
	Name        string `dynamodbav:"name" json:"name"`
	Artists     string `dynamodbav:"artists" json:"artists"` // comma-joined credits
	Mix         string `dynamodbav:"mix,omitempty" json:"mix,omitempty"`
	Remixers    string `dynamodbav:"remixers,omitempty" json:"remixers,omitempty"`
	Label       string `dynamodbav:"label,omitempty" json:"label,omitempty"`
	Genre       string `dynamodbav:"genre,omitempty" json:"genre,omitempty"`
	Release     string `dynamodbav:"release,omitempty" json:"release,omitempty"`
	ReleaseDate string `dynamodbav:"release_date,omitempty" json:"release_date,omitempty"`
	Price       string `dynamodbav:"price,omitempty" json:"price,omitempty"`
}

// ArtistList splits the comma-joined credits, trimming each name and dropping empties.
func (p Payload) ArtistList() []string {
	parts := strings.Split(p.Artists, ",")
	out := make([]string, 0, len(parts))
	for _, a := range parts {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Record is the item stored in the tracks table, one per purchased item id.
type Record struct {
	ItemID     string    `dynamodbav:"item_id"` // PK
	OrderID    string    `dynamodbav:"order_id,omitempty"`
	Track      Payload   `dynamodbav:"track"`
	SpotifyURI string    `dynamodbav:"spotify_uri,omitempty"`
	SnapshotID string    `dynamodbav:"spotify_playlist_snapshot_id,omitempty"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

// Resolved reports whether a catalog match has been persisted.
func (r Record) Resolved() bool { return r.SpotifyURI != "" }

// InPlaylist reports whether the playlist insertion was confirmed.
func (r Record) InPlaylist() bool { return r.SnapshotID != "" }

// ValidItemID reports whether id is a store item id: a non-empty run of digits.
func ValidItemID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Decode converts a raw item (for example a stream NewImage) into a Record.
func Decode(item map[string]types.AttributeValue) (*Record, error) {
	var rec Record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal track: %w", err)
	}
	if rec.ItemID == "" {
		return nil, errors.New("track item has no item_id")
	}
	return &rec, nil
}
