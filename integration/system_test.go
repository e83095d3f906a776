//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"

	"ProductManager/internal/auth"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type product struct {
	ID     string  `json:"id"`
	SKU    string  `json:"sku"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

type metrics struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

func TestSystem_E2E_PersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")
	token := e2eToken(t)

	var before metrics
	doJSON(t, http.MethodGet, baseURL+"/products/metrics", nil, &before, 200)

	sku := fmt.Sprintf("E2E-%d-%d", time.Now().Unix(), rand.Intn(100000))
	var created struct {
		Product product `json:"product"`
	}
	doJSONAuth(t, http.MethodPost, baseURL+"/products", token, map[string]any{
		"title":  "Widget",
		"sku":    sku,
		"price":  "9.99",
		"status": "active",
	}, &created, 201)
	if created.Product.ID == "" {
		t.Fatalf("product id missing: %#v", created)
	}

	var toggled product
	doJSONAuth(t, http.MethodPost, baseURL+"/products/"+created.Product.ID+"/toggle", token, nil, &toggled, 200)
	if toggled.Status != "inactive" {
		t.Fatalf("status=%s want=inactive", toggled.Status)
	}

	var after metrics
	doJSON(t, http.MethodGet, baseURL+"/products/metrics", nil, &after, 200)
	if after.Total != after.Active+after.Inactive {
		t.Fatalf("metrics do not add up: %#v", after)
	}

	if os.Getenv("E2E_RESTART") == "1" {
		restartServiceContainer(t, ctx, getenv("E2E_SERVICE", "product-manager"))
		waitReady(t, ctx, baseURL+"/readyz")
	}

	var got product
	doJSON(t, http.MethodGet, baseURL+"/products/"+created.Product.ID, nil, &got, 200)
	if got.SKU != sku || got.Status != "inactive" {
		t.Fatalf("got %#v", got)
	}

	doJSONAuth(t, http.MethodDelete, baseURL+"/products/"+created.Product.ID, token, nil, nil, 204)
}

// e2eToken mints a write token when JWT_SECRET is shared with the service.
func e2eToken(t *testing.T) string {
	t.Helper()
	if tok := os.Getenv("E2E_TOKEN"); tok != "" {
		return tok
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return ""
	}
	tok, err := auth.NewTokenMaker(secret).New("e2e", 5*time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
