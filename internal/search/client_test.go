package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/evocart/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func fakeES(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var seen []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		respond(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, Index: "products"})
	require.NoError(t, err)
	return c, &seen
}

func TestSearch_DecodesHits(t *testing.T) {
	c, seen := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":4,"name":"Desk Lamp","category":"Home Appliances","price":"1299.5"}}]}}`)
	})

	total, prods, err := c.Search(context.Background(), "lamp", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, prods, 1)
	assert.EqualValues(t, 4, prods[0].ID)
	assert.Equal(t, "Desk Lamp", prods[0].Name)
	assert.True(t, decimal.RequireFromString("1299.50").Equal(prods[0].Price))

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "/products/_search", req.Path)

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &q))
	mm := q["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "lamp", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
}

func TestSearch_ErrorStatus(t *testing.T) {
	c, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	})

	_, _, err := c.Search(context.Background(), "lamp", 0, 10)
	require.Error(t, err)
}

func TestIndexAndDeleteProduct(t *testing.T) {
	c, seen := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	p := &models.Product{ID: 12, Name: "Kettle", Category: "Home Appliances", Price: decimal.RequireFromString("899.00")}
	require.NoError(t, c.IndexProduct(context.Background(), p))
	require.NoError(t, c.DeleteProduct(context.Background(), 12))

	require.Len(t, *seen, 2)
	assert.Equal(t, http.MethodPut, (*seen)[0].Method)
	assert.Equal(t, "/products/_doc/12", (*seen)[0].Path)
	assert.Contains(t, (*seen)[0].Body, `"Kettle"`)
	assert.Equal(t, http.MethodDelete, (*seen)[1].Method)
	assert.Equal(t, "/products/_doc/12", (*seen)[1].Path)
}
