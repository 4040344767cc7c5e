package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/imrishuroy/tracksync/internal/tracks"
)

// ErrMalformedItemID is returned for a track whose item id is missing or not
// a non-negative integer.
var ErrMalformedItemID = errors.New("malformed item id")

// fieldAliases lists the accepted inbound keys for each payload field, in
// precedence order. Keys are matched case-insensitively.
var fieldAliases = []struct {
	field   string
	aliases []string
}{
	{"item", []string{"item", "item_id", "itemid"}},
	{"name", []string{"name", "title", "track"}},
	{"artists", []string{"artists", "artist"}},
	{"mix", []string{"mix", "mixname", "mix_name"}},
	{"remixers", []string{"remixers", "remixer"}},
	{"label", []string{"label"}},
	{"genre", []string{"genre"}},
	{"release", []string{"release", "releasename", "release_name"}},
	{"release_date", []string{"releasedate", "release_date"}},
	{"price", []string{"price"}},
}

var knownAliases = func() map[string]bool {
	m := map[string]bool{}
	for _, f := range fieldAliases {
		for _, a := range f.aliases {
			m[a] = true
		}
	}
	return m
}()

// NormalizeTrack maps a raw webhook track object onto a Payload. When several
// aliases of one field are present the earliest alias in fieldAliases wins.
// Unknown keys are returned in dropped, sorted.
func NormalizeTrack(raw map[string]any) (p tracks.Payload, dropped []string, err error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Keys differing only in case resolve to the first in sorted order.
	byAlias := make(map[string]any, len(raw))
	for _, k := range keys {
		norm := strings.ToLower(strings.TrimSpace(k))
		if !knownAliases[norm] {
			dropped = append(dropped, k)
			continue
		}
		if _, seen := byAlias[norm]; !seen {
			byAlias[norm] = raw[k]
		}
	}

	var itemRaw any
	for _, f := range fieldAliases {
		v, ok := firstAlias(byAlias, f.aliases)
		if !ok {
			continue
		}
		if f.field == "item" {
			itemRaw = v
			continue
		}
		s := stringValue(v)
		switch f.field {
		case "name":
			p.Name = s
		case "artists":
			p.Artists = s
		case "mix":
			p.Mix = s
		case "remixers":
			p.Remixers = s
		case "label":
			p.Label = s
		case "genre":
			p.Genre = s
		case "release":
			p.Release = s
		case "release_date":
			p.ReleaseDate = s
		case "price":
			p.Price = s
		}
	}

	p.Item, err = itemID(itemRaw)
	if err != nil {
		return tracks.Payload{}, dropped, err
	}
	return p, dropped, nil
}

func firstAlias(byAlias map[string]any, aliases []string) (any, bool) {
	for _, a := range aliases {
		if v, ok := byAlias[a]; ok {
			return v, true
		}
	}
	return nil, false
}

// NormalizeTracks normalizes every track and keys them by item id. Tracks with
// malformed ids are counted in skipped, never rejected.
func NormalizeTracks(raw []map[string]any) (out map[string]tracks.Payload, skipped int) {
	out = make(map[string]tracks.Payload, len(raw))
	for _, t := range raw {
		p, _, err := NormalizeTrack(t)
		if err != nil {
			skipped++
			continue
		}
		out[p.Item] = p
	}
	return out, skipped
}

// maxExactFloatID is the largest integer a float64 holds without rounding.
const maxExactFloatID = 1 << 53

func itemID(v any) (string, error) {
	switch x := v.(type) {
	case json.Number:
		if s := x.String(); tracks.ValidItemID(s) {
			return s, nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrMalformedItemID, x)
		}
		return itemID(f)
	case float64:
		if x < 0 || x > maxExactFloatID || x != math.Trunc(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("%w: %v", ErrMalformedItemID, x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		s := strings.TrimSpace(x)
		if !tracks.ValidItemID(s) {
			return "", fmt.Errorf("%w: %q", ErrMalformedItemID, x)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: %v", ErrMalformedItemID, v)
	}
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := stringValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
