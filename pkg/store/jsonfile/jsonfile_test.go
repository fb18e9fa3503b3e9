package jsonfile_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/store"
	"github.com/lucidjournal/lucidd/pkg/store/jsonfile"
)

func TestJSONFile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "JSONFile Store Suite")
}

var _ = Describe("Driver", func() {
	var (
		tmpDir string
		path   string
		driver *jsonfile.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "jsonfile-test-*")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(tmpDir, "dreams.json")

		driver, err = jsonfile.Open(path, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Create", func() {
		It("allocates unique increasing ids", func() {
			first, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.Create(ctx, "Flying", "2023-07-02", "I was flying")
			Expect(err).NotTo(HaveOccurred())

			Expect(first.ID).To(Equal(int64(1)))
			Expect(second.ID).To(Equal(int64(2)))
		})

		It("persists records without enrichment facets", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.GetByID(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Falling"))
			Expect(got.Date).To(Equal("2023-07-01"))
			Expect(got.Entry).To(Equal("I was falling"))
			Expect(got.Analysis).To(BeEmpty())
			Expect(got.Image).To(BeNil())
			Expect(got.Embedding).To(BeEmpty())
		})

		It("survives reopening the file", func() {
			_, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			reopened, err := jsonfile.Open(path, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			recs, err := reopened.GetAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Title).To(Equal("Falling"))
		})

		It("writes valid JSON with no temp file left behind", func() {
			_, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())

			var recs []*dream.Record
			Expect(json.Unmarshal(data, &recs)).To(Succeed())
			Expect(recs).To(HaveLen(1))

			_, err = os.Stat(path + ".tmp")
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("GetByID", func() {
		It("returns NotFound for an unknown id on an empty store", func() {
			_, err := driver.GetByID(ctx, 999)
			Expect(store.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("GetAll", func() {
		It("returns records in creation order", func() {
			for _, title := range []string{"a", "b", "c"} {
				_, err := driver.Create(ctx, title, "2023-07-01", "entry "+title)
				Expect(err).NotTo(HaveOccurred())
			}

			recs, err := driver.GetAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(3))
			Expect(recs[0].Title).To(Equal("a"))
			Expect(recs[1].Title).To(Equal("b"))
			Expect(recs[2].Title).To(Equal("c"))
		})

		It("returns snapshots that do not alias the live records", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			recs, err := driver.GetAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			recs[0].Title = "mutated"

			got, err := driver.GetByID(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Falling"))
		})
	})

	Describe("UpdateAnalysisAndImage", func() {
		It("stores exactly the provided facet values", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			image := &dream.Image{URL: "https://img.example.com/1.png"}
			updated, err := driver.UpdateAnalysisAndImage(ctx, rec.ID, "a fear of losing control", image)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Analysis).To(Equal("a fear of losing control"))
			Expect(updated.Image.URL).To(Equal("https://img.example.com/1.png"))
		})

		It("is idempotent", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			image := &dream.Image{URL: "https://img.example.com/1.png"}
			_, err = driver.UpdateAnalysisAndImage(ctx, rec.ID, "analysis", image)
			Expect(err).NotTo(HaveOccurred())
			again, err := driver.UpdateAnalysisAndImage(ctx, rec.ID, "analysis", image)
			Expect(err).NotTo(HaveOccurred())

			Expect(again.Analysis).To(Equal("analysis"))
			Expect(again.Image.URL).To(Equal("https://img.example.com/1.png"))
		})

		It("returns NotFound for an unknown id", func() {
			_, err := driver.UpdateAnalysisAndImage(ctx, 42, "analysis", nil)
			Expect(store.IsNotFound(err)).To(BeTrue())
		})

		It("never tears concurrent updates to one record", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			// Each writer sets a matched analysis/image pair; whichever wins,
			// the surviving record must hold one complete pair.
			const writers = 8
			var wg sync.WaitGroup
			wg.Add(writers)
			for i := range writers {
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					analysis := fmt.Sprintf("analysis-%d", i)
					image := &dream.Image{URL: fmt.Sprintf("https://img.example.com/%d.png", i)}
					_, err := driver.UpdateAnalysisAndImage(ctx, rec.ID, analysis, image)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			got, err := driver.GetByID(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Analysis).To(HavePrefix("analysis-"))
			winner := strings.TrimPrefix(got.Analysis, "analysis-")
			Expect(got.Image).NotTo(BeNil())
			Expect(got.Image.URL).To(Equal("https://img.example.com/" + winner + ".png"))

			// The file on disk is still one valid snapshot.
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			var recs []*dream.Record
			Expect(json.Unmarshal(data, &recs)).To(Succeed())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Analysis).To(Equal(got.Analysis))
			Expect(recs[0].Image.URL).To(Equal(got.Image.URL))
		})
	})

	Describe("SetEmbedding", func() {
		It("persists the embedding across reopen", func() {
			rec, err := driver.Create(ctx, "Falling", "2023-07-01", "I was falling")
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.SetEmbedding(ctx, rec.ID, []float32{0.5, 0.25})
			Expect(err).NotTo(HaveOccurred())

			reopened, err := jsonfile.Open(path, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			got, err := reopened.GetByID(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{0.5, 0.25}))
		})
	})

	Describe("Open", func() {
		It("degrades to empty on a corrupt file", func() {
			Expect(os.WriteFile(path, []byte("{not json"), 0o600)).To(Succeed())

			corrupt, err := jsonfile.Open(path, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			recs, err := corrupt.GetAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		It("rejects an empty path", func() {
			_, err := jsonfile.Open("", zap.NewNop())
			Expect(err).To(HaveOccurred())
		})
	})
})
