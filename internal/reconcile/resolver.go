package reconcile

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/tracksync/internal/spotify"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

// Searcher runs a catalog search and returns matching track URIs in rank order.
type Searcher interface {
	Search(ctx context.Context, accessToken, query string) ([]string, error)
}

// Attempt is the outcome of the search for one credited artist.
type Attempt struct {
	Artist string
	Query  string
	URIs   []string
	Err    error
}

// Resolution is the outcome of resolving one track.
type Resolution struct {
	URI      string
	Attempts []Attempt
}

// Matched reports whether a catalog URI was found.
func (r Resolution) Matched() bool { return r.URI != "" }

// BuildQuery builds the field-scoped catalog query for one artist.
func BuildQuery(artist, title string) string {
	return fmt.Sprintf("artist:%s track:%s", artist, Sanitize(title))
}

// Resolver finds the catalog URI of a purchased track.
type Resolver struct {
	searcher Searcher
	logger   *log.Logger
}

func NewResolver(searcher Searcher, logger *log.Logger) *Resolver {
	return &Resolver{searcher: searcher, logger: logger}
}

// Resolve searches once per credited artist, all concurrently, and picks the
// first URI in artist order. A failed search counts as no candidates.
//
// If nothing matched and any search was rejected for authorization, the
// returned error wraps spotify.ErrUnauthorized so the caller can refresh and
// resolve again.
func (r *Resolver) Resolve(ctx context.Context, accessToken string, track tracks.Payload) (Resolution, error) {
	artists := track.ArtistList()
	res := Resolution{Attempts: make([]Attempt, len(artists))}

	var g errgroup.Group
	for i, artist := range artists {
		q := BuildQuery(artist, track.Name)
		res.Attempts[i] = Attempt{Artist: artist, Query: q}
		g.Go(func() error {
			uris, err := r.searcher.Search(ctx, accessToken, q)
			res.Attempts[i].URIs = uris
			res.Attempts[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	unauthorized := false
	for _, a := range res.Attempts {
		if a.Err != nil {
			r.logger.Warn("catalog search failed", "query", a.Query, "err", a.Err)
			unauthorized = unauthorized || spotify.IsUnauthorized(a.Err)
			continue
		}
		if len(a.URIs) > 0 && !res.Matched() {
			res.URI = a.URIs[0]
		}
	}

	if !res.Matched() && unauthorized {
		return res, fmt.Errorf("resolve %q: %w", track.Name, spotify.ErrUnauthorized)
	}
	return res, nil
}
