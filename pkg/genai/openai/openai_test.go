package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lucidjournal/lucidd/pkg/genai"
	"github.com/lucidjournal/lucidd/pkg/genai/openai"
)

func TestOpenAIGenerator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OpenAI Generator Suite")
}

var _ = Describe("Generator", func() {
	var (
		server    *httptest.Server
		lastPath  string
		lastAuth  string
		lastBody  map[string]any
		responder func(path string, w http.ResponseWriter)
	)

	BeforeEach(func() {
		responder = func(path string, w http.ResponseWriter) {
			switch path {
			case "/v1/chat/completions":
				json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"content": "a loss of control"}},
					},
				})
			case "/v1/images/generations":
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{"url": "https://images.example.com/dream.png"},
					},
				})
			}
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath = r.URL.Path
			lastAuth = r.Header.Get("Authorization")

			lastBody = nil
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())

			responder(r.URL.Path, w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newGenerator := func() *openai.Generator {
		g, err := openai.NewGenerator(openai.Config{
			BaseURL:    server.URL,
			APIKey:     "test-key",
			TextModel:  "gpt-4o-mini",
			ImageModel: "dall-e-2",
		})
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	It("requires an api key", func() {
		_, err := openai.NewGenerator(openai.Config{})
		Expect(err).To(HaveOccurred())
	})

	Describe("Complete", func() {
		It("sends system and user messages with the token limit", func() {
			g := newGenerator()

			got, err := g.Complete(context.Background(), "You are dreaming about", "I was falling", 333)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("a loss of control"))

			Expect(lastPath).To(Equal("/v1/chat/completions"))
			Expect(lastAuth).To(Equal("Bearer test-key"))
			Expect(lastBody["model"]).To(Equal("gpt-4o-mini"))
			Expect(lastBody["max_tokens"]).To(BeEquivalentTo(333))

			messages := lastBody["messages"].([]any)
			Expect(messages).To(HaveLen(2))
			first := messages[0].(map[string]any)
			Expect(first["role"]).To(Equal("system"))
			Expect(first["content"]).To(Equal("You are dreaming about"))
			second := messages[1].(map[string]any)
			Expect(second["role"]).To(Equal("user"))
			Expect(second["content"]).To(Equal("I was falling"))
		})

		It("wraps empty responses as generation errors", func() {
			responder = func(_ string, w http.ResponseWriter) {
				json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			}

			_, err := newGenerator().Complete(context.Background(), "s", "u", 10)
			Expect(errors.Is(err, genai.ErrGeneration)).To(BeTrue())
		})

		It("surfaces API errors", func() {
			responder = func(_ string, w http.ResponseWriter) {
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "quota exceeded"},
				})
			}

			_, err := newGenerator().Complete(context.Background(), "s", "u", 10)
			Expect(errors.Is(err, genai.ErrGeneration)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("quota exceeded"))
		})
	})

	Describe("Generate", func() {
		It("sends the prompt, count and size", func() {
			g := newGenerator()

			images, err := g.Generate(context.Background(), "clouds at dusk", 1, "512x512")
			Expect(err).NotTo(HaveOccurred())
			Expect(images).To(HaveLen(1))
			Expect(images[0].URL).To(Equal("https://images.example.com/dream.png"))

			Expect(lastPath).To(Equal("/v1/images/generations"))
			Expect(lastBody["model"]).To(Equal("dall-e-2"))
			Expect(lastBody["prompt"]).To(Equal("clouds at dusk"))
			Expect(lastBody["n"]).To(BeEquivalentTo(1))
			Expect(lastBody["size"]).To(Equal("512x512"))
		})

		It("wraps HTTP failures as image generation errors", func() {
			responder = func(_ string, w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadGateway)
			}

			_, err := newGenerator().Generate(context.Background(), "p", 1, "512x512")
			Expect(errors.Is(err, genai.ErrImageGeneration)).To(BeTrue())
		})
	})
})
