package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
)

// StaticWardrobe serves image references from memory.
type StaticWardrobe map[string][]string

func (w StaticWardrobe) Images(_ context.Context, userID string) ([]string, error) {
	return append([]string(nil), w[userID]...), nil
}

// ElasticWardrobe looks up a user's wardrobe images in an index whose
// documents carry user_id and image_url.
type ElasticWardrobe struct {
	client *elasticsearch.Client
	index  string
	max    int
}

func NewElasticWardrobe(client *elasticsearch.Client, index string, max int) *ElasticWardrobe {
	if max <= 0 {
		max = 50
	}
	return &ElasticWardrobe{client: client, index: index, max: max}
}

func (w *ElasticWardrobe) Images(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"user_id": userID},
		},
		"_source": []string{"image_url"},
		"sort":    []interface{}{map[string]interface{}{"uploaded_at": map[string]string{"order": "desc", "unmapped_type": "date"}}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWardrobeLookupFailed, err)
	}

	res, err := w.client.Search(
		w.client.Search.WithContext(ctx),
		w.client.Search.WithIndex(w.index),
		w.client.Search.WithBody(bytes.NewReader(body)),
		w.client.Search.WithSize(w.max),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWardrobeLookupFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrWardrobeLookupFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ImageURL string `json:"image_url"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrWardrobeLookupFailed, err)
	}

	images := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Source.ImageURL != "" {
			images = append(images, h.Source.ImageURL)
		}
	}
	return images, nil
}
