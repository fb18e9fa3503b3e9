package eventstream_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/eventstream"
)

func TestEventStream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EventStream Suite")
}

var _ = Describe("NewDreamEvent", func() {
	var rec *dream.Record

	BeforeEach(func() {
		rec = &dream.Record{
			ID:        7,
			Title:     "Falling",
			Date:      "2023-07-01",
			Entry:     "I was falling",
			Embedding: []float32{0.1, 0.2},
		}
	})

	It("stamps type, schema version and a unique id", func() {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamCreated, rec)

		Expect(event.EventType).To(Equal("lucidd.dream.created"))
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.EmittedAt).NotTo(BeZero())

		other := eventstream.NewDreamEvent(eventstream.EventTypeDreamCreated, rec)
		Expect(other.EventID).NotTo(Equal(event.EventID))
	})

	It("strips the embedding from the payload", func() {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamEnriched, rec)

		Expect(event.Dream.Embedding).To(BeNil())

		// The source record keeps its embedding.
		Expect(rec.Embedding).To(HaveLen(2))

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("embedding"))
	})

	It("snapshots the record fields", func() {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamCreated, rec)

		rec.Title = "mutated"
		Expect(event.Dream.Title).To(Equal("Falling"))
		Expect(event.Dream.ID).To(Equal(int64(7)))
	})
})
