package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
)

// BookSearcher finds catalog entries by free text.
type BookSearcher interface {
	SearchBooks(ctx context.Context, q string, size int) ([]entity.Book, error)
}

// CatalogIndex keeps books in an Elasticsearch index.
type CatalogIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewCatalogIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *CatalogIndex {
	return &CatalogIndex{ES: es, Index: index, Logger: logger}
}

type bookDoc struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

const booksMapping = `{
  "mappings": {
    "properties": {
      "id":     {"type": "long"},
      "title":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "author": {"type": "text"}
    }
  }
}`

// EnsureIndex creates the books index when it does not exist yet.
func (ci *CatalogIndex) EnsureIndex(ctx context.Context) error {
	res, err := ci.ES.Indices.Exists([]string{ci.Index}, ci.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	res, err = ci.ES.Indices.Create(ci.Index,
		ci.ES.Indices.Create.WithContext(ctx),
		ci.ES.Indices.Create.WithBody(strings.NewReader(booksMapping)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", ci.Index, res.Status())
	}
	return nil
}

// IndexBooks indexes each book; the first failure stops the run.
func (ci *CatalogIndex) IndexBooks(ctx context.Context, books []entity.Book) error {
	for _, b := range books {
		if err := ci.IndexBook(ctx, b); err != nil {
			return err
		}
	}
	if ci.Logger != nil {
		ci.Logger.WithFields(logrus.Fields{"index": ci.Index, "count": len(books)}).Info("catalog indexed")
	}
	return nil
}

func (ci *CatalogIndex) IndexBook(ctx context.Context, b entity.Book) error {
	body, err := json.Marshal(bookDoc{ID: b.ID, Title: b.Title, Author: b.Author})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      ci.Index,
		DocumentID: strconv.FormatInt(b.ID, 10),
		Body:       strings.NewReader(string(body)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, ci.ES)
	if err != nil {
		return fmt.Errorf("index book %d: %w", b.ID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index book %d: %s", b.ID, res.Status())
	}
	return nil
}

// SearchBooks performs a multi_match search on title and author.
func (ci *CatalogIndex) SearchBooks(ctx context.Context, q string, size int) ([]entity.Book, error) {
	if size <= 0 || size > 50 {
		size = 20
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^2", "author"},
				"fuzziness": "AUTO",
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := ci.ES.Search(
		ci.ES.Search.WithContext(c),
		ci.ES.Search.WithIndex(ci.Index),
		ci.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search books: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source bookDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Book, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, entity.Book{ID: h.Source.ID, Title: h.Source.Title, Author: h.Source.Author})
	}
	return out, nil
}

var _ BookSearcher = (*CatalogIndex)(nil)
