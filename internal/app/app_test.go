package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/tracksync/internal/aws"
	"github.com/imrishuroy/tracksync/internal/config"
	"github.com/imrishuroy/tracksync/internal/handlers"
	"github.com/imrishuroy/tracksync/internal/logging"
	"github.com/imrishuroy/tracksync/internal/reconcile"
)

// tableMock is an in-memory DynamoDB covering the conditions the stores use.
type tableMock struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
}

var tableKeys = map[string]string{"purchases": "order_id", "tracks": "item_id", "tokens": "name"}

func newTableMock() *tableMock {
	return &tableMock{tables: map[string]map[string]map[string]types.AttributeValue{
		"purchases": {}, "tracks": {}, "tokens": {},
	}}
}

func sval(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *tableMock) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *in.TableName
	k := sval(in.Item[tableKeys[table]])
	if in.ConditionExpression != nil && strings.HasPrefix(*in.ConditionExpression, "attribute_not_exists") {
		if _, ok := m.tables[table][k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.tables[table][k] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *tableMock) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *in.TableName
	return &dyn.GetItemOutput{Item: m.tables[table][sval(in.Key[tableKeys[table]])]}, nil
}

func (m *tableMock) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *in.TableName
	item, ok := m.tables[table][sval(in.Key[tableKeys[table]])]
	vals := in.ExpressionAttributeValues
	switch *in.ConditionExpression {
	case "attribute_exists(item_id) AND attribute_not_exists(spotify_uri)":
		if !ok || item["spotify_uri"] != nil {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["spotify_uri"] = vals[":uri"]
	case "spotify_uri = :uri":
		if !ok || sval(item["spotify_uri"]) != sval(vals[":uri"]) {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["spotify_playlist_snapshot_id"] = vals[":snap"]
	}
	item["updated_at"] = vals[":ua"]
	return &dyn.UpdateItemOutput{}, nil
}

func (m *tableMock) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range m.tables[*in.TableName] {
		if item["spotify_uri"] == nil {
			items = append(items, item)
		}
	}
	return &dyn.ScanOutput{Items: items}, nil
}

type sqsMock struct {
	bodies []string
}

func (m *sqsMock) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.bodies = append(m.bodies, *in.MessageBody)
	id := "m-1"
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

type cloudWatchMock struct {
	mu      sync.Mutex
	metrics []string
}

func (m *cloudWatchMock) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range in.MetricData {
		m.metrics = append(m.metrics, *d.MetricName)
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// fakeSpotify accepts only the "fresh" token, which /token hands out.
type fakeSpotify struct {
	mu       sync.Mutex
	queries  []string
	inserted []string
	refreshs int
}

func (f *fakeSpotify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/token" {
		f.refreshs++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer fresh" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		return
	}
	switch {
	case r.URL.Path == "/search":
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"abc","uri":"spotify:track:abc"}],"total":1}}`))
	case r.URL.Path == "/playlists/pl/tracks" && r.Method == http.MethodPost:
		var body struct {
			URIs     []string `json:"uris"`
			Position int      `json:"position"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.inserted = append(f.inserted, body.URIs...)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"snapshot_id":"snap-1"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestPurchaseToPlaylist(t *testing.T) {
	ctx := context.Background()
	spot := &fakeSpotify{}
	srv := httptest.NewServer(spot)
	defer srv.Close()

	cfg := config.Default()
	cfg.Spotify.APIURL = srv.URL
	cfg.Spotify.TokenURL = srv.URL + "/token"
	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	cfg.Spotify.PlaylistID = "pl"
	cfg.Queue.SweepURL = "https://sqs.local/sweep"

	db := newTableMock()
	cw := &cloudWatchMock{}
	q := &sqsMock{}
	a := NewWithClients(cfg, &aws.AWSClients{DynamoDB: db, SQS: q, CloudWatch: cw}, logging.Discard())

	require.NoError(t, a.Tokens.SaveRefreshToken(ctx, "refresh"))
	require.NoError(t, a.Tokens.SaveAccessToken(ctx, "stale"))

	router := handlers.NewRouter(handlers.HandlerConfig{
		Purchases:  a.Purchases,
		Candidates: a.Sweeper,
		Queue:      a.Publisher,
		Logger:     logging.Discard(),
	})

	// webhook
	body := `{"order_id":"X","tracks":[{"Item":123,"Name":"Song (Original Mix)","Artists":"DJ A"}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/purchase", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	purchase, err := a.Purchases.Get(ctx, "X")
	require.NoError(t, err)
	require.NotNil(t, purchase)
	require.Contains(t, purchase.Tracks, "123")

	// purchases INSERT
	created, err := a.FanOut.Process(ctx, *purchase)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// the pending track is a sweep candidate
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/sweep", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, q.bodies, 1)
	var msg reconcile.SweepMessage
	require.NoError(t, json.Unmarshal([]byte(q.bodies[0]), &msg))
	assert.Equal(t, []string{"123"}, msg.ItemIDs)

	// tracks INSERT
	rec, err := a.Tracks.Get(ctx, "123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NoError(t, a.Driver.Reconcile(ctx, rec.ItemID, *rec))

	assert.Equal(t, []string{"artist:DJ A track:Song"}, spot.queries)
	assert.Equal(t, []string{"spotify:track:abc"}, spot.inserted)
	assert.Equal(t, 1, spot.refreshs)

	rec, err = a.Tracks.Get(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:abc", rec.SpotifyURI)
	assert.Equal(t, "snap-1", rec.SnapshotID)

	creds, err := a.Tokens.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", creds.AccessToken)
	assert.Contains(t, cw.metrics, reconcile.MetricTrackMatched)
	assert.Contains(t, cw.metrics, reconcile.MetricPlaylistInsertSucceeded)

	// nothing left to sweep
	report, err := a.Sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
}
