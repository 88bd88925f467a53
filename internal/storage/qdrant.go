// Package storage implements the schema vector index on Qdrant.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const upsertBatchSize = 100

// pointNamespace makes point UUIDs a stable function of document identity,
// so rebuilds of an unchanged schema produce the same point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragsql/schema-document"))

// Index is the schema vector index. Readers query through a collection
// alias; Rebuild loads a fresh collection and swaps the alias in a single
// request, so concurrent readers see either the old full set or the new
// full set, never a partially-built index.
type Index struct {
	client *qdrant.Client
	alias  string
	host   string
	port   int
}

// NewIndex creates a Qdrant-backed index with health validation. It fails
// fast if Qdrant is unreachable and bootstraps an empty collection behind
// the alias if none exists yet.
func NewIndex(host string, port int, alias string) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &Index{
		client: client,
		alias:  alias,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	if err := idx.bootstrap(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("bootstrap collection: %w", err)
	}

	return idx, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Index) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Index) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// bootstrap ensures the alias resolves to a collection, creating an empty
// one on first run. Idempotent.
func (s *Index) bootstrap(ctx context.Context) error {
	existing, err := s.aliasTarget(ctx)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}

	name := s.versionedName()
	if err := s.createCollection(ctx, name); err != nil {
		return err
	}
	return s.swapAlias(ctx, name, false)
}

// Rebuild replaces the full index contents. The new records are loaded into
// a fresh collection, then the alias is swapped and stale collections are
// dropped. An empty record set is valid and yields an empty index.
func (s *Index) Rebuild(ctx context.Context, records []*EmbeddingRecord) error {
	for i, rec := range records {
		if len(rec.Vector) != VectorDimension {
			return fmt.Errorf("%w: record %d (%s) has %d dimensions, expected %d",
				ErrDimensionMismatch, i, rec.DocumentID, len(rec.Vector), VectorDimension)
		}
	}

	newName := s.versionedName()
	if err := s.createCollection(ctx, newName); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		batch := records[start:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for i, rec := range batch {
			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(rec.DocumentID)),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"document_id":   rec.DocumentID,
					"schema_name":   rec.SchemaName,
					"relation_name": rec.RelationName,
					"kind":          rec.Kind,
					"rendered_text": rec.RenderedText,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, newName, points); err != nil {
			// Leave the old index in place on failure.
			_ = s.client.DeleteCollection(ctx, newName)
			return fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
		}
	}

	if err := s.swapAlias(ctx, newName, true); err != nil {
		_ = s.client.DeleteCollection(ctx, newName)
		return fmt.Errorf("swap alias: %w", err)
	}

	return s.dropStaleCollections(ctx, newName)
}

// Query returns up to k nearest records by cosine similarity, ordered by
// descending score. Equal scores retain Qdrant's stable ordering.
func (s *Index) Query(ctx context.Context, vector []float32, k int) ([]*ScoredRecord, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.alias,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	records := make([]*ScoredRecord, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		records = append(records, &ScoredRecord{
			EmbeddingRecord: EmbeddingRecord{
				DocumentID:   payload["document_id"].GetStringValue(),
				SchemaName:   payload["schema_name"].GetStringValue(),
				RelationName: payload["relation_name"].GetStringValue(),
				Kind:         payload["kind"].GetStringValue(),
				RenderedText: payload["rendered_text"].GetStringValue(),
			},
			Score: result.Score,
		})
	}
	return records, nil
}

// Count returns the number of indexed documents.
func (s *Index) Count(ctx context.Context) (uint64, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.alias)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return collection.GetPointsCount(), nil
}

// IsEmpty reports whether the index holds no documents.
func (s *Index) IsEmpty(ctx context.Context) (bool, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Close closes the Qdrant client connection.
func (s *Index) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Index) versionedName() string {
	return fmt.Sprintf("%s_%d", s.alias, time.Now().UnixNano())
}

func (s *Index) createCollection(ctx context.Context, name string) error {
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// aliasTarget returns the collection the alias currently points at, or ""
// if the alias does not exist.
func (s *Index) aliasTarget(ctx context.Context) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == s.alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// swapAlias repoints the alias at target. Delete and create run in one
// UpdateAliases request, which Qdrant applies atomically.
func (s *Index) swapAlias(ctx context.Context, target string, deleteOld bool) error {
	var actions []*qdrant.AliasOperations
	if deleteOld {
		actions = append(actions, &qdrant.AliasOperations{
			Action: &qdrant.AliasOperations_DeleteAlias{
				DeleteAlias: &qdrant.DeleteAlias{AliasName: s.alias},
			},
		})
	}
	actions = append(actions, &qdrant.AliasOperations{
		Action: &qdrant.AliasOperations_CreateAlias{
			CreateAlias: &qdrant.CreateAlias{
				CollectionName: target,
				AliasName:      s.alias,
			},
		},
	})
	return s.client.UpdateAliases(ctx, actions)
}

// dropStaleCollections removes versioned collections left behind by
// previous rebuilds.
func (s *Index) dropStaleCollections(ctx context.Context, current string) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name != current && strings.HasPrefix(name, s.alias+"_") {
			if err := s.client.DeleteCollection(ctx, name); err != nil {
				return fmt.Errorf("failed to drop stale collection %s: %w", name, err)
			}
		}
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *Index) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// pointID derives a stable UUID from document identity.
func pointID(documentID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID)).String()
}
