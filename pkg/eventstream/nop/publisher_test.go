package nop_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lucidjournal/lucidd/pkg/dream"
	"github.com/lucidjournal/lucidd/pkg/eventstream"
	"github.com/lucidjournal/lucidd/pkg/eventstream/nop"
)

func TestNopPublisher(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Nop Publisher Suite")
}

var _ = Describe("Publisher", func() {
	var publisher *nop.Publisher

	BeforeEach(func() {
		publisher = nop.NewPublisher()
	})

	It("accepts events without side effects", func() {
		event := eventstream.NewDreamEvent(eventstream.EventTypeDreamCreated, &dream.Record{ID: 1})
		Expect(publisher.PublishDream(context.Background(), event)).To(Succeed())
	})

	It("rejects a nil event", func() {
		err := publisher.PublishDream(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilDreamEvent))
	})

	It("closes cleanly", func() {
		Expect(publisher.Close()).To(Succeed())
	})
})
