// loadgen drives the storefront API with many concurrent buyers fighting
// over one product, to observe the no-oversell guarantee under real
// contention: with STOCK units and more buyers than units, exactly STOCK
// orders must succeed and stock must land on zero.
package main

import (
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	apiURL := getEnv("API_URL", "http://localhost:8080")
	buyers := getEnvInt("BUYERS", 50)
	stock := getEnvInt("STOCK", 10)
	concurrency := getEnvInt("CONCURRENCY", 16)

	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(10 * time.Second)

	adminID := uuid.New().String()

	var product struct {
		ID string `json:"id"`
	}
	resp, err := client.R().
		SetHeader("X-User-ID", adminID).
		SetHeader("X-User-Role", "admin").
		SetBody(map[string]any{
			"name":  "loadgen widget",
			"price": 1999,
			"stock": stock,
		}).
		SetResult(&product).
		Post("/api/products")
	if err != nil {
		log.Fatalf("create product: %v", err)
	}
	if resp.IsError() {
		log.Fatalf("create product: %s: %s", resp.Status(), resp.String())
	}
	log.Printf("product %s seeded with stock=%d, releasing %d buyers", product.ID, stock, buyers)

	var created, rejected atomic.Int64

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			userID := uuid.New().String()

			r, err := client.R().
				SetHeader("X-User-ID", userID).
				SetBody(map[string]any{"productId": product.ID, "quantity": 1}).
				Post("/api/cart/items")
			if err != nil {
				return err
			}
			if r.IsError() {
				rejected.Add(1)
				return nil
			}

			r, err = client.R().
				SetHeader("X-User-ID", userID).
				Post("/api/orders")
			if err != nil {
				return err
			}
			if r.IsError() {
				rejected.Add(1)
				return nil
			}

			created.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("buyer failed: %v", err)
	}
	elapsed := time.Since(start)

	var remaining struct {
		Stock int32 `json:"stock"`
	}
	resp, err = client.R().
		SetHeader("X-User-ID", adminID).
		SetResult(&remaining).
		Get("/api/products/" + product.ID)
	if err != nil || resp.IsError() {
		log.Fatalf("read remaining stock: %v %s", err, resp.Status())
	}

	log.Printf("done in %s: orders=%d rejected=%d remaining_stock=%d",
		elapsed, created.Load(), rejected.Load(), remaining.Stock)

	if int(created.Load())+int(remaining.Stock) != stock {
		log.Fatalf("OVERSELL: created(%d) + remaining(%d) != stock(%d)",
			created.Load(), remaining.Stock, stock)
	}
	log.Printf("stock accounting holds")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
