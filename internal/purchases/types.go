package purchases

import (
	"sort"
	"time"

	"github.com/imrishuroy/tracksync/internal/tracks"
)

// Purchase is the item stored in the purchases table: the tracks of one order
// keyed by item id. It is written once and never updated.
type Purchase struct {
	OrderID   string                    `dynamodbav:"order_id"` // PK
	Tracks    map[string]tracks.Payload `dynamodbav:"tracks"`
	CreatedAt time.Time                 `dynamodbav:"created_at"`
}

// ItemIDs returns the purchase's item ids in a stable order.
func (p Purchase) ItemIDs() []string {
	ids := make([]string, 0, len(p.Tracks))
	for id := range p.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
