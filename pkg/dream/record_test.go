package dream_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lucidjournal/lucidd/pkg/dream"
)

func TestDream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dream Suite")
}

var _ = Describe("Record", func() {
	Describe("Clone", func() {
		It("copies the image and embedding deeply", func() {
			rec := &dream.Record{
				ID:        1,
				Title:     "Falling",
				Image:     &dream.Image{URL: "u"},
				Embedding: []float32{1, 2},
			}

			clone := rec.Clone()
			clone.Image.URL = "changed"
			clone.Embedding[0] = 9

			Expect(rec.Image.URL).To(Equal("u"))
			Expect(rec.Embedding[0]).To(Equal(float32(1)))
		})

		It("handles nil", func() {
			var rec *dream.Record
			Expect(rec.Clone()).To(BeNil())
		})
	})

	Describe("Payload", func() {
		It("strips the embedding but keeps the facets", func() {
			rec := &dream.Record{
				ID:        1,
				Title:     "Falling",
				Date:      "2023-07-01",
				Entry:     "I was falling",
				Analysis:  "analysis",
				Image:     &dream.Image{URL: "u"},
				Embedding: []float32{1, 2, 3},
			}

			payload, err := rec.Payload()
			Expect(err).NotTo(HaveOccurred())

			var decoded dream.Record
			Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
			Expect(decoded.Embedding).To(BeNil())
			Expect(decoded.Analysis).To(Equal("analysis"))
			Expect(decoded.Image.URL).To(Equal("u"))

			// Payload must not mutate the source record.
			Expect(rec.Embedding).To(HaveLen(3))
		})

		It("is deterministic for identical records", func() {
			rec := &dream.Record{ID: 1, Title: "t", Date: "d", Entry: "e"}

			a, err := rec.Payload()
			Expect(err).NotTo(HaveOccurred())
			b, err := rec.Payload()
			Expect(err).NotTo(HaveOccurred())

			Expect(a).To(Equal(b))
		})
	})
})
