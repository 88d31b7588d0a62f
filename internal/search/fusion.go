// Package search provides library-wide hybrid search (keyword + semantic) over stored chunks.
package search

import (
	"sort"

	"github.com/hyperjump/pagewise/internal/keyword"
	"github.com/hyperjump/pagewise/internal/ranking"
)

// FusedResult holds a document ID, its fused keyword/semantic scores and the chunk that
// contributed the most.
type FusedResult struct {
	DocumentID    string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
	BestChunkID   int64

	bestChunkScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max, keyed by chunk id.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[int64]float64 {
	normalized := make(map[int64]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ChunkID] = r.Score / maxScore
		} else {
			normalized[r.ChunkID] = 0
		}
	}
	return normalized
}

// SemanticScores returns semantic scores as-is (cosine on unit vectors), keyed by chunk id.
func SemanticScores(results []*ranking.ScoredChunk) map[int64]float64 {
	scores := make(map[int64]float64, len(results))
	for _, r := range results {
		if r == nil || r.Chunk == nil {
			continue
		}
		scores[r.Chunk.ID] = r.Score
	}
	return scores
}

// Fuse aggregates chunk scores per document and merges them with weights. A document's
// keyword and semantic scores are the maxima over its chunks; chunks missing from
// chunkToDoc are ignored. Results are sorted by score, then document ID.
func Fuse(keywordScores, semanticScores map[int64]float64, chunkToDoc map[int64]string, keywordWeight, semanticWeight float64) []*FusedResult {
	byDoc := make(map[string]*FusedResult)
	visit := func(chunkID int64) {
		docID, ok := chunkToDoc[chunkID]
		if !ok {
			return
		}
		kw, sem := keywordScores[chunkID], semanticScores[chunkID]
		chunkScore := keywordWeight*kw + semanticWeight*sem

		r, exists := byDoc[docID]
		if !exists {
			byDoc[docID] = &FusedResult{
				DocumentID:     docID,
				KeywordScore:   kw,
				SemanticScore:  sem,
				BestChunkID:    chunkID,
				bestChunkScore: chunkScore,
			}
			return
		}
		if kw > r.KeywordScore {
			r.KeywordScore = kw
		}
		if sem > r.SemanticScore {
			r.SemanticScore = sem
		}
		if chunkScore > r.bestChunkScore || (chunkScore == r.bestChunkScore && chunkID < r.BestChunkID) {
			r.BestChunkID = chunkID
			r.bestChunkScore = chunkScore
		}
	}
	for id := range keywordScores {
		visit(id)
	}
	for id := range semanticScores {
		if _, seen := keywordScores[id]; !seen {
			visit(id)
		}
	}

	results := make([]*FusedResult, 0, len(byDoc))
	for _, r := range byDoc {
		r.Score = keywordWeight*r.KeywordScore + semanticWeight*r.SemanticScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	return results
}
