package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arvik/shopsearch/cache"
	"github.com/arvik/shopsearch/httpapi"
	"github.com/arvik/shopsearch/internal/recordcache"
	"github.com/arvik/shopsearch/pkg/testsupport"
	"github.com/arvik/shopsearch/search"
	"github.com/arvik/shopsearch/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := testsupport.NewDB(t)
	records, err := recordcache.New(recordcache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	sup, err := cache.NewSupervisor[[]storage.EntitySummary](storage.EntityProduct, cache.DefaultSupervisorConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	sup.Start()
	t.Cleanup(sup.Stop)

	productRepo := storage.NewProductRepository(db)
	svc := search.NewService[storage.EntitySummary](sup, productRepo.SearchByName, search.Options{})
	products := storage.NewCached[storage.Product](storage.EntityProduct, productRepo, records, svc, nil)

	srv := httpapi.NewServer(httpapi.Config{SearchRatePerSecond: 1000, SearchRateBurst: 1000}, nil)
	srv.RegisterSearch("products", svc)
	httpapi.RegisterResource[storage.Product](srv, "products", products)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type searchResponse struct {
	Data []storage.EntitySummary `json:"data"`
}

func createProduct(t *testing.T, ts *httptest.Server, name string) storage.Product {
	t.Helper()
	body := fmt.Sprintf(`{"name": %q, "price": "9.99", "stock": 1}`, name)
	resp, err := http.Post(ts.URL+"/products", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var out struct {
		Data storage.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Data
}

func doSearch(t *testing.T, ts *httptest.Server, term string) searchResponse {
	t.Helper()
	resp, err := http.Get(ts.URL + "/products/search?term=" + term)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSearch_EnvelopeShape(t *testing.T) {
	ts := newTestServer(t)
	createProduct(t, ts, "product1")

	resp, err := http.Get(ts.URL + "/products/search?term=pro")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	data, ok := raw["data"]
	if !ok {
		t.Fatal(`response must carry a "data" key`)
	}
	var summaries []storage.EntitySummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		t.Fatalf("data is not an array of summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Name != "product1" || summaries[0].ID == 0 {
		t.Errorf("unexpected summaries: %+v", summaries)
	}
}

func TestSearch_MissingTerm(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/products/search")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearch_EmptyResultIsEmptyArray(t *testing.T) {
	ts := newTestServer(t)

	got := doSearch(t, ts, "zzz")
	if got.Data == nil {
		t.Error(`expected "data": [], got null`)
	}
	if len(got.Data) != 0 {
		t.Errorf("expected no results, got %v", got.Data)
	}
}

// A create must invalidate the search cache so the next identical search
// sees the new product.
func TestSearch_CreateInvalidatesCache(t *testing.T) {
	ts := newTestServer(t)
	createProduct(t, ts, "product1")

	if got := doSearch(t, ts, "pro"); len(got.Data) != 1 {
		t.Fatalf("expected 1 result, got %v", got.Data)
	}

	createProduct(t, ts, "product2")

	got := doSearch(t, ts, "pro")
	if len(got.Data) != 2 {
		t.Fatalf("expected 2 results after create, got %v", got.Data)
	}
	if got.Data[0].Name != "product1" || got.Data[1].Name != "product2" {
		t.Errorf("unexpected result order: %v", got.Data)
	}
}

func TestResource_CRUDLifecycle(t *testing.T) {
	ts := newTestServer(t)
	created := createProduct(t, ts, "gadget")

	resp, err := http.Get(fmt.Sprintf("%s/products/%d", ts.URL, created.ID))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d", resp.StatusCode)
	}

	// Update via PUT; the path id wins over whatever the body carries.
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/products/%d", ts.URL, created.ID),
		bytes.NewBufferString(`{"name": "gadget v2", "price": "19.99", "stock": 2}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated struct {
		Data storage.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if updated.Data.Name != "gadget v2" || updated.Data.ID != created.ID {
		t.Errorf("unexpected update result: %+v", updated.Data)
	}

	req, _ = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/products/%d", ts.URL, created.ID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(fmt.Sprintf("%s/products/%d", ts.URL, created.ID))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestResource_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/products/not-a-number")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/products", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}
