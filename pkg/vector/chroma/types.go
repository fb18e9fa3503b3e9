package chroma

// chromaCollection represents a Chroma collection response.
type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// chromaUpsertRequest is the request body for upserting points. The
// serialized dream record travels in the documents array.
type chromaUpsertRequest struct {
	IDs        []string    `json:"ids"`
	Embeddings [][]float32 `json:"embeddings"`
	Documents  []string    `json:"documents,omitempty"`
}

// chromaQueryRequest is the request body for similarity queries.
type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

// chromaQueryResponse is the response from a query. Results come back grouped
// per query embedding; we always send exactly one.
type chromaQueryResponse struct {
	IDs        [][]string    `json:"ids"`
	Distances  [][]float32   `json:"distances"`
	Documents  [][]string    `json:"documents"`
	Embeddings [][][]float32 `json:"embeddings"`
}

// chromaGetRequest is the request body for fetching points by id.
type chromaGetRequest struct {
	IDs     []string `json:"ids"`
	Include []string `json:"include"`
}

// chromaGetResponse is the response from fetching points by id.
type chromaGetResponse struct {
	IDs        []string    `json:"ids"`
	Documents  []string    `json:"documents"`
	Embeddings [][]float32 `json:"embeddings"`
}
