package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/validation"
)

// Source loads a taxonomy from an external configuration store.
type Source interface {
	Load(ctx context.Context) (*Taxonomy, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Taxonomy, error)

func (f SourceFunc) Load(ctx context.Context) (*Taxonomy, error) { return f(ctx) }

// Document is the JSON form of a taxonomy.
type Document struct {
	Version    string     `json:"version,omitempty"`
	Categories []Category `json:"categories"`
}

// Parse validates raw against the taxonomy schema and builds a Taxonomy.
func Parse(raw []byte) (*Taxonomy, error) {
	res, err := validation.ValidateTaxonomy(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaxonomy, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTaxonomy, strings.Join(res.GetErrorMessages(), "; "))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaxonomy, err)
	}
	return New(doc.Version, doc.Categories)
}

// Encode renders t as a Document.
func Encode(t *Taxonomy) ([]byte, error) {
	return json.Marshal(Document{Version: t.Version(), Categories: t.Categories()})
}

// StaticSource always returns the same taxonomy.
type StaticSource struct {
	Taxonomy *Taxonomy
}

func (s StaticSource) Load(context.Context) (*Taxonomy, error) {
	if s.Taxonomy == nil {
		return nil, errors.New("static taxonomy is nil")
	}
	return s.Taxonomy, nil
}

// FileSource reads a JSON taxonomy document from disk on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) (*Taxonomy, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", s.Path, err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", s.Path, err)
	}
	return t, nil
}

// RedisSource serves the taxonomy document cached under Key. On a miss, an
// unreadable entry or a redis error it loads from Upstream and writes the
// result back with TTL. Redis failures never hide a healthy upstream.
type RedisSource struct {
	Client   redis.Cmdable
	Key      string
	TTL      time.Duration
	Upstream Source
	Logger   logger.Logger
}

func (s *RedisSource) Load(ctx context.Context) (*Taxonomy, error) {
	log := s.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	raw, err := s.Client.Get(ctx, s.Key).Bytes()
	switch {
	case err == nil:
		t, perr := Parse(raw)
		if perr == nil {
			return t, nil
		}
		log.Warn("cached taxonomy is invalid, reloading", map[string]interface{}{"key": s.Key, "error": perr})
	case errors.Is(err, redis.Nil):
		log.Debug("taxonomy cache miss", map[string]interface{}{"key": s.Key})
	default:
		log.Warn("taxonomy cache unavailable", map[string]interface{}{"key": s.Key, "error": err})
	}

	if s.Upstream == nil {
		return nil, fmt.Errorf("taxonomy not cached under %s and no upstream configured", s.Key)
	}
	t, err := s.Upstream.Load(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := Encode(t)
	if err == nil {
		err = s.Client.Set(ctx, s.Key, encoded, s.TTL).Err()
	}
	if err != nil {
		log.Warn("failed to cache taxonomy", map[string]interface{}{"key": s.Key, "error": err})
	}
	return t, nil
}
