// Package bootstrap builds the journal and its collaborators from a loaded
// configuration. Both the serve and reconcile commands go through here so a
// provider is wired exactly once.
package bootstrap

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/config"
	"github.com/lucidjournal/lucidd/pkg/dotdir"
	"github.com/lucidjournal/lucidd/pkg/embeddings"
	embollama "github.com/lucidjournal/lucidd/pkg/embeddings/ollama"
	embopenai "github.com/lucidjournal/lucidd/pkg/embeddings/openai"
	"github.com/lucidjournal/lucidd/pkg/eventstream"
	eskafka "github.com/lucidjournal/lucidd/pkg/eventstream/kafka"
	"github.com/lucidjournal/lucidd/pkg/eventstream/nop"
	"github.com/lucidjournal/lucidd/pkg/genai"
	genollama "github.com/lucidjournal/lucidd/pkg/genai/ollama"
	genopenai "github.com/lucidjournal/lucidd/pkg/genai/openai"
	"github.com/lucidjournal/lucidd/pkg/journal"
	"github.com/lucidjournal/lucidd/pkg/store"
	"github.com/lucidjournal/lucidd/pkg/store/inmemory"
	"github.com/lucidjournal/lucidd/pkg/store/jsonfile"
	"github.com/lucidjournal/lucidd/pkg/store/sqlite"
	"github.com/lucidjournal/lucidd/pkg/vector"
	"github.com/lucidjournal/lucidd/pkg/vector/chroma"
	"github.com/lucidjournal/lucidd/pkg/vector/qdrant"
	"github.com/lucidjournal/lucidd/pkg/vector/sqlitevec"
)

// System is the wired set of collaborators for a running lucidd process.
type System struct {
	Journal   *journal.Journal
	Publisher eventstream.Publisher

	store    store.Driver
	index    vector.Driver
	embedder embeddings.Embedder
	textGen  genai.TextGenerator
	imageGen genai.ImageGenerator
}

// Close releases every collaborator, last-built first.
func (s *System) Close() {
	if s.imageGen != nil {
		s.imageGen.Close()
	}
	if s.textGen != nil {
		s.textGen.Close()
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.index != nil {
		s.index.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// Build wires a System from configuration. configDir overrides the .lucidd/
// directory used for default data file locations.
func Build(cfg *config.Config, configDir string, logger *zap.Logger) (*System, error) {
	dataDir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	sys := &System{}

	sys.store, err = buildStore(cfg, dataDir, logger)
	if err != nil {
		return nil, err
	}

	sys.index, err = buildIndex(cfg, dataDir, logger)
	if err != nil {
		sys.Close()
		return nil, err
	}

	sys.embedder, err = buildEmbedder(cfg)
	if err != nil {
		sys.Close()
		return nil, err
	}

	sys.textGen, sys.imageGen, err = buildGenerators(cfg)
	if err != nil {
		sys.Close()
		return nil, err
	}

	sys.Publisher, err = buildPublisher(cfg, logger)
	if err != nil {
		sys.Close()
		return nil, err
	}

	sys.Journal, err = journal.New(journal.Config{
		Store:          sys.store,
		Index:          sys.index,
		Embedder:       sys.embedder,
		TextGenerator:  sys.textGen,
		ImageGenerator: sys.imageGen,
		ImageSize:      cfg.Image.Size,
		Logger:         logger,
	})
	if err != nil {
		sys.Close()
		return nil, err
	}

	return sys, nil
}

func buildStore(cfg *config.Config, dataDir string, logger *zap.Logger) (store.Driver, error) {
	switch strings.ToLower(cfg.Storage.Provider) {
	case "jsonfile", "":
		path := cfg.Storage.Path
		if path == "" {
			path = filepath.Join(dataDir, "dreams.json")
		}
		return jsonfile.Open(path, logger)

	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			path = filepath.Join(dataDir, "dreams.db")
		}
		return sqlite.NewDriver(path, logger)

	case "inmemory":
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Storage.Provider)
	}
}

func buildIndex(cfg *config.Config, dataDir string, logger *zap.Logger) (vector.Driver, error) {
	switch strings.ToLower(cfg.VectorStore.Provider) {
	case "sqlitevec", "":
		path := cfg.VectorStore.Target
		if path == "" {
			path = filepath.Join(dataDir, "vectors.db")
		}
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     path,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)

	case "qdrant":
		host, port, err := splitHostPort(cfg.VectorStore.Target)
		if err != nil {
			return nil, fmt.Errorf("qdrant target: %w", err)
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:       host,
			Port:       port,
			Collection: cfg.VectorStore.Collection,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)

	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            cfg.VectorStore.Target,
			CollectionName: cfg.VectorStore.Collection,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown vector store provider: %q", cfg.VectorStore.Provider)
	}
}

func buildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "ollama", "":
		return embollama.NewEmbedder(embollama.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			Model:   cfg.Embedding.Model,
		})

	case "openai":
		return embopenai.NewEmbedder(embopenai.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   cfg.Embedding.Model,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Embedding.Provider)
	}
}

// buildGenerators wires the text generator for the configured LLM provider.
// Image generation always needs the OpenAI endpoint; without a key the image
// generator stays nil and Illustrate reports failure.
func buildGenerators(cfg *config.Config) (genai.TextGenerator, genai.ImageGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")

	var imageGen genai.ImageGenerator
	if apiKey != "" {
		gen, err := genopenai.NewGenerator(genopenai.Config{
			APIKey:     apiKey,
			ImageModel: cfg.Image.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		imageGen = gen
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "ollama", "":
		textGen, err := genollama.NewGenerator(genollama.Config{
			BaseURL: cfg.LLM.Target,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return textGen, imageGen, nil

	case "openai":
		gen, err := genopenai.NewGenerator(genopenai.Config{
			BaseURL:    cfg.LLM.Target,
			APIKey:     apiKey,
			TextModel:  cfg.LLM.Model,
			ImageModel: cfg.Image.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		return gen, gen, nil

	default:
		return nil, nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

func buildPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(cfg.Events.Provider) {
	case "nop", "":
		return nop.NewPublisher(), nil

	case "kafka":
		return eskafka.NewPublisher(eskafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown events provider: %q", cfg.Events.Provider)
	}
}

func splitHostPort(target string) (string, int, error) {
	if target == "" {
		return "localhost", 6334, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given, use the default gRPC port.
		return target, 6334, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}

	return host, port, nil
}
