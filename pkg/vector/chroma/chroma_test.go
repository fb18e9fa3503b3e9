package chroma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/vector"
	"github.com/lucidjournal/lucidd/pkg/vector/chroma"
)

func TestChromaDriver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chroma Driver Suite")
}

const collectionsBase = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma is a minimal in-memory stand-in for Chroma's REST collection API.
type fakeChroma struct {
	ids        []string
	embeddings [][]float32
	documents  []string

	created bool
}

func (f *fakeChroma) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == collectionsBase+"/dreams":
			if !f.created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "dreams"})

		case r.Method == http.MethodPost && r.URL.Path == collectionsBase:
			f.created = true
			json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "dreams"})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/upsert"):
			var body struct {
				IDs        []string    `json:"ids"`
				Embeddings [][]float32 `json:"embeddings"`
				Documents  []string    `json:"documents"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.ids = body.IDs
			f.embeddings = body.Embeddings
			f.documents = body.Documents
			json.NewEncoder(w).Encode(map[string]any{})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/get"):
			json.NewEncoder(w).Encode(map[string]any{
				"ids":        f.ids,
				"embeddings": f.embeddings,
				"documents":  f.documents,
			})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
			json.NewEncoder(w).Encode(map[string]any{
				"ids":       [][]string{f.ids},
				"documents": [][]string{f.documents},
				"distances": [][]float32{{0.25}},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

var _ = Describe("Driver", func() {
	var (
		fake   *fakeChroma
		server *httptest.Server
		driver *chroma.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		fake = &fakeChroma{}
		server = httptest.NewServer(fake.handler())

		var err error
		driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	It("creates the collection on first connect", func() {
		Expect(fake.created).To(BeTrue())
	})

	It("wraps an unreachable server as a connection error", func() {
		server.Close()

		_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, zap.NewNop())
		Expect(err).To(MatchError(vector.ErrConnection))
	})

	It("upserts points with string ids and document payloads", func() {
		err := driver.Upsert(ctx, []vector.Point{{
			ID:      7,
			Vector:  []float32{0.1, 0.2},
			Payload: []byte(`{"id":7}`),
		}})
		Expect(err).NotTo(HaveOccurred())

		Expect(fake.ids).To(Equal([]string{"7"}))
		Expect(fake.embeddings).To(Equal([][]float32{{0.1, 0.2}}))
		Expect(fake.documents).To(Equal([]string{`{"id":7}`}))
	})

	It("gets points back with numeric ids", func() {
		Expect(driver.Upsert(ctx, []vector.Point{{
			ID:      7,
			Vector:  []float32{0.1, 0.2},
			Payload: []byte(`{"id":7}`),
		}})).To(Succeed())

		points, err := driver.Get(ctx, []int64{7}, true, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(1))
		Expect(points[0].ID).To(Equal(int64(7)))
		Expect(points[0].Vector).To(Equal([]float32{0.1, 0.2}))
		Expect(points[0].Payload).To(Equal([]byte(`{"id":7}`)))
	})

	It("returns nothing for an empty id list without a round trip", func() {
		points, err := driver.Get(ctx, nil, true, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(BeEmpty())
	})

	It("queries with scores derived from distances", func() {
		Expect(driver.Upsert(ctx, []vector.Point{{
			ID:      7,
			Vector:  []float32{0.1, 0.2},
			Payload: []byte(`{"id":7}`),
		}})).To(Succeed())

		results, err := driver.Query(ctx, []float32{0.1, 0.2}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal(int64(7)))
		Expect(results[0].Payload).To(Equal([]byte(`{"id":7}`)))
		Expect(results[0].Score).To(BeNumerically("==", 1.0/1.25))
	})
})
