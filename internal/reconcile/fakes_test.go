package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/imrishuroy/tracksync/internal/spotify"
	"github.com/imrishuroy/tracksync/internal/tokens"
	"github.com/imrishuroy/tracksync/internal/tracks"
)

// fakeSearcher answers searches from a fixed table keyed by query. Queries in
// needToken fail with 401 unless called with the listed token.
type fakeSearcher struct {
	mu        sync.Mutex
	results   map[string][]string
	errs      map[string]error
	needToken string
	queries   []string
	tokens    []string
}

func (f *fakeSearcher) Search(ctx context.Context, accessToken, query string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.tokens = append(f.tokens, accessToken)
	if f.needToken != "" && accessToken != f.needToken {
		return nil, &spotify.APIError{Status: 401}
	}
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeSearcher) sortedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.queries...)
	sort.Strings(out)
	return out
}

// journal records the order of side effects across fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeTrackStore struct {
	j       *journal
	records map[string]*tracks.Record
	uriErr  error
}

func (f *fakeTrackStore) Get(ctx context.Context, itemID string) (*tracks.Record, error) {
	rec, ok := f.records[itemID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeTrackStore) SetSpotifyURI(ctx context.Context, itemID, uri string) error {
	if f.uriErr != nil {
		return f.uriErr
	}
	f.j.add("uri:" + uri)
	if rec, ok := f.records[itemID]; ok {
		rec.SpotifyURI = uri
	}
	return nil
}

func (f *fakeTrackStore) SetSnapshotID(ctx context.Context, itemID, uri, snapshotID string) error {
	f.j.add("snapshot:" + snapshotID)
	if rec, ok := f.records[itemID]; ok {
		rec.SnapshotID = snapshotID
	}
	return nil
}

type fakeInserter struct {
	j        *journal
	snapshot string
	err      error
	calls    int
}

func (f *fakeInserter) InsertTrack(ctx context.Context, accessToken, playlistID, uri string, position int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.j.add("insert:" + playlistID + ":" + uri)
	return f.snapshot, nil
}

type fakeTokenStore struct {
	creds tokens.Credentials
	saved []string
}

func (f *fakeTokenStore) Load(ctx context.Context) (tokens.Credentials, error) {
	return f.creds, nil
}

func (f *fakeTokenStore) SaveAccessToken(ctx context.Context, value string) error {
	f.saved = append(f.saved, value)
	return nil
}

type fakeRefresher struct {
	token string
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.calls++
	if f.token == "" {
		return "", errors.New("invalid_grant")
	}
	return f.token, nil
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (f *fakeCounter) Count(ctx context.Context, name string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]float64{}
	}
	f.counts[name] += value
}
