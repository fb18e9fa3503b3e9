package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lucidjournal/lucidd/pkg/embeddings/ollama"
	"github.com/lucidjournal/lucidd/pkg/vector"
)

func TestOllamaEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		requests []map[string]any
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		requests = nil
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(r.Method).To(Equal(http.MethodPost))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			requests = append(requests, body)

			respond(w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("sends the model and input and returns the embedding", func() {
		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: server.URL,
			Model:   "all-minilm",
		})
		Expect(err).NotTo(HaveOccurred())

		vec, err := embedder.Embed(context.Background(), "I was falling")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))

		Expect(requests).To(HaveLen(1))
		Expect(requests[0]["model"]).To(Equal("all-minilm"))
		Expect(requests[0]["input"]).To(Equal("I was falling"))
	})

	It("defaults the model", func() {
		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = embedder.Embed(context.Background(), "text")
		Expect(err).NotTo(HaveOccurred())
		Expect(requests[0]["model"]).To(Equal(ollama.DefaultEmbeddingModel))
	})

	It("wraps HTTP failures as embedding errors", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusInternalServerError)
		}

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = embedder.Embed(context.Background(), "text")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})

	It("rejects an empty embeddings response", func() {
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
		}

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = embedder.Embed(context.Background(), "text")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})
})
