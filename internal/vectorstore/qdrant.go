package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// Qdrant payload field names.
const (
	payloadID         = "id"
	payloadChunk      = "chunk"
	payloadSource     = "source"
	payloadChunkIndex = "chunkIndex"
	payloadCreatedAt  = "createdAt"
)

// QdrantStore persists vectors in a Qdrant collection over gRPC.
//
// Qdrant point IDs must be UUIDs or integers, so the stable record ID
// (e.g. "a.pdf-0") is mapped through a name-based UUID. The mapping is
// deterministic, which preserves upsert-overwrite semantics; the original
// ID is kept in the payload for callers.
type QdrantStore struct {
	conn       *grpc.ClientConn
	points     qdrantclient.PointsClient
	collection string
}

// NewQdrantStore connects to Qdrant and ensures the collection exists with
// the given dimension and cosine distance.
func NewQdrantStore(cfg config.QdrantConfig, collection string, dimensions int) (*QdrantStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}
	s := &QdrantStore{
		conn:       conn,
		points:     qdrantclient.NewPointsClient(conn),
		collection: collection,
	}
	if err := s.ensureCollection(context.Background(), qdrantclient.NewCollectionsClient(conn), uint64(dimensions)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, collections qdrantclient.CollectionsClient, size uint64) error {
	list, err := collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     size,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	return nil
}

// pointID maps a stable record ID to a deterministic Qdrant UUID.
func pointID(recordID string) *qdrantclient.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID))
	return &qdrantclient.PointId{
		PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: u.String()},
	}
}

// Upsert writes the whole batch in one call with wait semantics, so the
// vectors are searchable once this returns.
func (s *QdrantStore) Upsert(ctx context.Context, records []models.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	points := make([]*qdrantclient.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrantclient.PointStruct{
			Id: pointID(rec.ID),
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: rec.Vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				payloadID:         {Kind: &qdrantclient.Value_StringValue{StringValue: rec.ID}},
				payloadChunk:      {Kind: &qdrantclient.Value_StringValue{StringValue: rec.Metadata.Chunk}},
				payloadSource:     {Kind: &qdrantclient.Value_StringValue{StringValue: rec.Metadata.Source}},
				payloadChunkIndex: {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(rec.Metadata.ChunkIndex)}},
				payloadCreatedAt:  {Kind: &qdrantclient.Value_StringValue{StringValue: rec.Metadata.CreatedAt}},
			},
		}
	}
	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant upsert: %w", err)
	}
	return len(records), nil
}

// Query searches the collection and returns matches in descending score order.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	matches := make([]models.Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		m := models.Match{Score: float64(point.GetScore())}
		if v, ok := point.Payload[payloadID]; ok {
			m.ID = v.GetStringValue()
		}
		if v, ok := point.Payload[payloadChunk]; ok {
			m.Metadata.Chunk = v.GetStringValue()
		}
		if v, ok := point.Payload[payloadSource]; ok {
			m.Metadata.Source = v.GetStringValue()
		}
		if v, ok := point.Payload[payloadChunkIndex]; ok {
			m.Metadata.ChunkIndex = int(v.GetIntegerValue())
		}
		if v, ok := point.Payload[payloadCreatedAt]; ok {
			m.Metadata.CreatedAt = v.GetStringValue()
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Delete removes the points mapped from the given stable record IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrantclient.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
