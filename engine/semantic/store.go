package semantic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/embed"
	"github.com/WessleyAI/docqa/pkg/fn"
	"github.com/WessleyAI/docqa/pkg/resilience"
)

// UpsertBatchSize is the number of points sent per upsert call.
const UpsertBatchSize = 100

// pointsAPI is the subset of pb.PointsClient RemoteIndex uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient RemoteIndex uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// RemoteIndex stores vectors in a Qdrant collection using cosine distance.
// Scores are Qdrant's cosine similarity, returned unmodified.
//
// The collection is created on first use if it does not exist. Upserts go
// out in batches of UpsertBatchSize and the first failing batch aborts the
// call; batches written before it stay in the collection.
type RemoteIndex struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	provider    embed.Provider
	breaker     *resilience.Breaker
	log         *slog.Logger

	mu    sync.Mutex
	ready bool
}

// NewRemote dials Qdrant's gRPC endpoint described by cfg.
func NewRemote(cfg Config, provider embed.Provider, log *slog.Logger) (*RemoteIndex, error) {
	addr := cfg.Addr
	for _, scheme := range []string{"http://", "https://", "grpc://"} {
		addr = strings.TrimPrefix(addr, scheme)
	}
	addr = strings.TrimRight(addr, "/")

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.TLS {
		opts[0] = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, domain.NewConfigurationError("qdrant_url", cfg.Addr, err.Error())
	}
	r := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), cfg.Collection, provider, log)
	r.conn = conn
	return r, nil
}

// NewWithClients builds a RemoteIndex over existing clients.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, provider embed.Provider, log *slog.Logger) *RemoteIndex {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("collection", collection)
	return &RemoteIndex{
		points:      points,
		collections: collections,
		collection:  collection,
		provider:    provider,
		log:         log,
		breaker: resilience.NewBreaker(resilience.BreakerOpts{
			OnStateChange: func(from, to resilience.State) {
				log.Warn("semantic: qdrant breaker", "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Close closes the gRPC connection, if RemoteIndex owns one.
func (r *RemoteIndex) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(metadata.AppendToOutgoingContext(ctx, "api-key", key), method, req, reply, cc, opts...)
	}
}

func (r *RemoteIndex) backendErr(op string, err error) error {
	return &domain.IndexBackendError{Backend: BackendRemote, Op: op, Err: err}
}

// ensureCollection creates the collection on first use. Success is
// remembered; failures are retried on the next call.
func (r *RemoteIndex) ensureCollection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}

	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
		for _, c := range list.GetCollections() {
			if c.GetName() == r.collection {
				return nil
			}
		}

		_, err = r.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: r.collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(r.provider.Dimensions()),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		r.log.Info("semantic: created collection", "dims", r.provider.Dimensions())
		return nil
	})
	if err != nil {
		return r.backendErr("ensure collection", err)
	}
	r.ready = true
	return nil
}

// PointID maps a record id onto the UUID Qdrant stores it under.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// AddDocuments embeds every record, then upserts them in order in batches.
func (r *RemoteIndex) AddDocuments(ctx context.Context, records []domain.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.ensureCollection(ctx); err != nil {
		return err
	}

	vecs, err := embed.Batch(ctx, r.provider, fn.Map(records, recordContent))
	if err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(records))
	for i, rec := range records {
		payload := toPayload(rec.Metadata)
		payload[payloadContent] = toValue(rec.Content)
		payload[payloadRecordID] = toValue(rec.ID)
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(rec.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vecs[i]},
				},
			},
			Payload: payload,
		}
	}

	batches := fn.Chunk(points, UpsertBatchSize)
	for i, batch := range batches {
		err := r.breaker.Call(ctx, func(ctx context.Context) error {
			wait := true
			_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
				CollectionName: r.collection,
				Wait:           &wait,
				Points:         batch,
			})
			return err
		})
		if err != nil {
			r.log.Error("semantic: upsert failed", "batch", i, "batches", len(batches), "err", err)
			return r.backendErr(fmt.Sprintf("upsert batch %d/%d", i+1, len(batches)), err)
		}
	}
	r.log.Debug("semantic: upserted", "points", len(points), "batches", len(batches))
	return nil
}

// Search returns the k most similar points with their payload as metadata.
func (r *RemoteIndex) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	k = normalizeK(k)
	if err := r.ensureCollection(ctx); err != nil {
		return nil, err
	}
	qv, err := embed.Query(ctx, r.provider, query)
	if err != nil {
		return nil, err
	}

	resp, err := resilience.CallResult(r.breaker, ctx, func(ctx context.Context) fn.Result[*pb.SearchResponse] {
		return fn.FromPair(r.points.Search(ctx, &pb.SearchPoints{
			CollectionName: r.collection,
			Vector:         qv,
			Limit:          uint64(k),
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		}))
	}).Unwrap()
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			r.log.Warn("semantic: search rejected, breaker open")
		}
		return nil, r.backendErr("search", err)
	}

	hits := resp.GetResult()
	out := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		meta := fromPayload(h.GetPayload())
		content, _ := meta[payloadContent].(string)
		delete(meta, payloadContent)
		delete(meta, payloadRecordID)
		out[i] = domain.SearchResult{
			Content:  content,
			Metadata: meta,
			Score:    float64(h.GetScore()),
		}
	}
	return out, nil
}
