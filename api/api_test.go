package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/eventstream/nop"
	"github.com/lucidjournal/lucidd/pkg/journal"
	"github.com/lucidjournal/lucidd/pkg/journal/worker"
	"github.com/lucidjournal/lucidd/pkg/store/inmemory"
	testutils "github.com/lucidjournal/lucidd/pkg/utils/test"
	"github.com/lucidjournal/lucidd/pkg/vector"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

var _ = Describe("Server", func() {
	var (
		storer   *inmemory.Driver
		index    *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
		textGen  *testutils.MockTextGenerator
		imageGen *testutils.MockImageGenerator
		server   *Server
	)

	BeforeEach(func() {
		storer = inmemory.NewDriver()
		index = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		textGen = testutils.NewMockTextGenerator()
		imageGen = testutils.NewMockImageGenerator()

		j, err := journal.New(journal.Config{
			Store:          storer,
			Index:          index,
			Embedder:       embedder,
			TextGenerator:  textGen,
			ImageGenerator: imageGen,
			Logger:         zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, j, nil, nop.NewPublisher(), zap.NewNop())
	})

	request := func(method, path string, body any) *http.Response {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}

		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, out any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}

	createDream := func() *dream.Record {
		resp := request("POST", "/api/dreams", CreateDreamRequest{
			Title: "Falling",
			Date:  "2023-07-01",
			Entry: "I was falling",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var rec dream.Record
		decode(resp, &rec)
		return &rec
	}

	Describe("GET /ping", func() {
		It("responds pong", func() {
			resp := request("GET", "/ping", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body string
			decode(resp, &body)
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("POST /api/dreams", func() {
		It("creates a record with an id", func() {
			rec := createDream()
			Expect(rec.ID).To(Equal(int64(1)))
			Expect(rec.Title).To(Equal("Falling"))
		})

		It("rejects a body with missing fields", func() {
			resp := request("POST", "/api/dreams", CreateDreamRequest{Title: "only a title"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("synchronizes the new record into the index", func() {
			rec := createDream()
			Expect(index.Points).To(HaveKey(rec.ID))
		})
	})

	Describe("GET /api/dreams", func() {
		It("returns an empty array when there are no records", func() {
			resp := request("GET", "/api/dreams", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var recs []*dream.Record
			decode(resp, &recs)
			Expect(recs).To(BeEmpty())
		})

		It("lists created records", func() {
			createDream()

			resp := request("GET", "/api/dreams", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var recs []*dream.Record
			decode(resp, &recs)
			Expect(recs).To(HaveLen(1))
		})
	})

	Describe("GET /api/dreams/:id", func() {
		It("fetches a record", func() {
			rec := createDream()

			resp := request("GET", "/api/dreams/1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got dream.Record
			decode(resp, &got)
			Expect(got.ID).To(Equal(rec.ID))
			Expect(got.Entry).To(Equal("I was falling"))
		})

		It("returns 404 for an unknown id", func() {
			resp := request("GET", "/api/dreams/999", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a non-numeric id", func() {
			resp := request("GET", "/api/dreams/abc", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /api/dreams/:id", func() {
		It("overwrites both facets", func() {
			createDream()

			resp := request("PUT", "/api/dreams/1", UpdateDreamRequest{
				Analysis: "a fear of losing control",
				Image:    &dream.Image{URL: "https://img.example.com/1.png"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got dream.Record
			decode(resp, &got)
			Expect(got.Analysis).To(Equal("a fear of losing control"))
			Expect(got.Image.URL).To(Equal("https://img.example.com/1.png"))
		})

		It("returns 404 for an unknown id", func() {
			resp := request("PUT", "/api/dreams/999", UpdateDreamRequest{Analysis: "x"})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /api/dreams/:id/analysis", func() {
		It("returns generated analysis without persisting it", func() {
			rec := createDream()
			textGen.Completions["I was falling"] = "a loss of control"

			resp := request("GET", "/api/dreams/1/analysis", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			decode(resp, &body)
			Expect(body["analysis"]).To(Equal("a loss of control"))

			stored, err := storer.GetByID(context.Background(), rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Analysis).To(BeEmpty())
		})

		It("returns 502 when generation fails", func() {
			createDream()
			textGen.Fail = true

			resp := request("GET", "/api/dreams/1/analysis", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("GET /api/dreams/:id/image", func() {
		It("returns a generated image", func() {
			createDream()

			resp := request("GET", "/api/dreams/1/image", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var img dream.Image
			decode(resp, &img)
			Expect(img.URL).NotTo(BeEmpty())
		})
	})

	Describe("GET /api/dreams/search", func() {
		It("requires a query", func() {
			resp := request("GET", "/api/dreams/search", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns matching records", func() {
			rec := createDream()
			index.Results = []vector.Result{{
				Point: index.Points[rec.ID],
				Score: 0.95,
			}}

			resp := request("GET", "/api/dreams/search?q=falling", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var recs []*dream.Record
			decode(resp, &recs)
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Title).To(Equal("Falling"))
		})

		It("returns 502 when the query cannot be embedded", func() {
			embedder.FailOn = "opaque"

			resp := request("GET", "/api/dreams/search?q=opaque", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("POST /api/dreams/:id/enrich", func() {
		It("returns 503 when no pool is configured", func() {
			createDream()

			resp := request("POST", "/api/dreams/1/enrich", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		Context("with an enrichment pool", func() {
			var pool *worker.Pool

			BeforeEach(func() {
				var err error
				pool, err = worker.NewPool(&worker.Config{
					Journal:    server.journal,
					NumWorkers: 1,
					Logger:     zap.NewNop(),
				})
				Expect(err).NotTo(HaveOccurred())
				server.pool = pool
			})

			AfterEach(func() {
				pool.Close()
			})

			It("queues enrichment for an existing record", func() {
				rec := createDream()

				resp := request("POST", "/api/dreams/1/enrich", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

				var body map[string]int64
				decode(resp, &body)
				Expect(body["queued"]).To(Equal(rec.ID))
			})

			It("returns 404 for an unknown id", func() {
				resp := request("POST", "/api/dreams/999/enrich", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})
})
