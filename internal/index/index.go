package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"contract-assistant/internal/models"
)

// Embedder is the single external call the index depends on.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index holds one uploaded document's chunks and their vectors in an
// in-memory chromem collection. One index per upload; released when the
// session store replaces it. The mutex lets a question in flight finish
// against an index that a concurrent upload is replacing.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	chunks     []models.Chunk
}

// Build embeds every chunk and stores it in a fresh collection. Building
// is all-or-nothing: any embedding failure discards the partial result and
// returns ErrEmbedding, leaving the caller's previous index untouched.
func Build(ctx context.Context, embedder Embedder, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document contains no extractable text", models.ErrEmptyFile)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", models.ErrEmbedding, chunk.ChunkID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        uuid.NewString(),
			Content:   chunk.Content,
			Embedding: vector,
			Metadata: map[string]string{
				"chunk_id": strconv.Itoa(chunk.ChunkID),
				"page":     strconv.Itoa(chunk.PageNumber),
			},
		})
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection("contract-"+uuid.NewString(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %v", err)
	}

	log.Debug().Int("chunks", len(chunks)).Msg("Built document index")
	return &Index{db: db, collection: collection, chunks: chunks}, nil
}

// Size reports the number of indexed chunks.
func (i *Index) Size() int {
	if i == nil {
		return 0
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.collection == nil {
		return 0
	}
	return i.collection.Count()
}

// Retrieve returns the topK most similar chunks for the query. Equal
// similarities resolve in document order.
func (i *Index) Retrieve(ctx context.Context, embedder Embedder, query string, topK int) ([]models.Chunk, error) {
	if i == nil {
		return nil, models.ErrNoIndex
	}

	// Embed outside the lock; the query does not depend on index state.
	queryVector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", models.ErrEmbedding, err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.collection == nil {
		return nil, models.ErrNoIndex
	}

	// chromem rejects nResults larger than the collection.
	if count := i.collection.Count(); topK > count {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	results, err := i.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	type ranked struct {
		chunk      models.Chunk
		similarity float32
	}
	hits := make([]ranked, 0, len(results))
	for _, res := range results {
		ord, err := strconv.Atoi(res.Metadata["chunk_id"])
		if err != nil || ord < 1 || ord > len(i.chunks) {
			continue
		}
		hits = append(hits, ranked{chunk: i.chunks[ord-1], similarity: res.Similarity})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].similarity != hits[b].similarity {
			return hits[a].similarity > hits[b].similarity
		}
		return hits[a].chunk.ChunkID < hits[b].chunk.ChunkID
	})

	chunks := make([]models.Chunk, len(hits))
	for n, h := range hits {
		chunks[n] = h.chunk
	}
	return chunks, nil
}

// Release drops the collection so replaced indexes do not pile up in a
// long-running process. It blocks until in-flight retrievals finish.
func (i *Index) Release() {
	if i == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.collection == nil {
		return
	}
	if err := i.db.DeleteCollection(i.collection.Name); err != nil {
		log.Warn().Err(err).Msg("Error releasing index collection")
	}
	i.collection = nil
	i.chunks = nil
}
