package domain

// IndexEntry pairs a chunk's text with its embedding vector.
// The JSON form is the persisted record layout of an index snapshot.
type IndexEntry struct {
	ChunkID     string            `json:"chunk_id,omitempty"`
	DocumentID  string            `json:"doc_id"`
	Text        string            `json:"chunk_text"`
	Vector      []float32         `json:"vector"`
	OffsetStart int               `json:"offset_start"`
	OffsetEnd   int               `json:"offset_end"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e IndexEntry) Clone() IndexEntry {
	out := e
	if e.Vector != nil {
		out.Vector = make([]float32, len(e.Vector))
		copy(out.Vector, e.Vector)
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SearchFilter restricts a vector search to matching entries.
// A zero filter matches everything.
type SearchFilter struct {
	// DocumentID limits results to one document.
	DocumentID string

	// Metadata requires every key to be present with an equal value.
	Metadata map[string]string
}

// Matches reports whether the entry satisfies the filter.
func (f SearchFilter) Matches(e IndexEntry) bool {
	if f.DocumentID != "" && e.DocumentID != f.DocumentID {
		return false
	}
	for k, v := range f.Metadata {
		if e.Metadata[k] != v {
			return false
		}
	}
	return true
}

// IsZero reports whether the filter has no constraints.
func (f SearchFilter) IsZero() bool {
	return f.DocumentID == "" && len(f.Metadata) == 0
}

// VectorHit is a single vector search result.
type VectorHit struct {
	Entry      IndexEntry
	Similarity float64
}

// RetrievedChunk is a chunk returned by the retriever for a query.
type RetrievedChunk struct {
	ChunkID    string            `json:"chunk_id,omitempty"`
	DocumentID string            `json:"doc_id"`
	Source     string            `json:"source,omitempty"`
	Text       string            `json:"chunk_text"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IndexSnapshot is the persisted state of the corpus.
// Entries are kept in insertion order.
type IndexSnapshot struct {
	Documents []Document   `json:"documents"`
	Entries   []IndexEntry `json:"records"`
}

// Metadata keys written on index entries.
const (
	MetaFilename = "filename"
	MetaFormat   = "format"
	MetaPosition = "position"
	MetaTitle    = "title"

	// MetaChecksum is the hex SHA-256 of the uploaded bytes, kept on documents.
	MetaChecksum = "sha256"
)
