package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/krisalay/storefront-cache"
	"github.com/krisalay/storefront-cache/platform/local"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	// ---------------- Load Config ----------------
	const (
		shards       = 8
		goroutines   = 200
		opsPerG      = 5000
		latency      = 2 * time.Millisecond
		ttl          = 250 * time.Millisecond
		clearEvery   = 100 * time.Millisecond
		reviewsPages = 3
	)

	fmt.Println("\n================ CATALOG LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards          :", shards)
	fmt.Println("Goroutines      :", goroutines)
	fmt.Println("Ops/Goroutine   :", opsPerG)
	fmt.Println("Platform latency:", latency)
	fmt.Println("TTL             :", ttl)
	fmt.Println("Clear every     :", clearEvery)
	fmt.Println("---------------------------------")

	// ---------------- Platform ----------------
	p, err := local.New(nil, local.WithLatency(latency))
	if err != nil {
		panic(err)
	}
	defer func() { _ = p.Close() }()
	if err := p.Init(ctx, "demo-store"); err != nil {
		panic(err)
	}

	// ---------------- Catalog ----------------
	cfg := cache.DefaultConfig()
	cfg.Shards = shards
	cfg.StoreDataTTL = ttl
	cfg.ProductDataTTL = ttl
	cfg.ReviewsTTL = ttl
	cfg.BannerTTL = ttl

	c, err := cache.NewCatalog(p, cfg)
	if err != nil {
		panic(err)
	}

	// ---------------- Warmup ----------------
	fmt.Println("Warming up cache...")
	c.WarmCache(ctx)
	fmt.Println("Warmup complete.")

	products := []string{"p1", "p2", "p3", "trail-hoodie", "canvas-tote"}

	// ---------------- Invalidation ----------------
	stop := make(chan struct{})
	var clears atomic.Int64
	go func() {
		t := time.NewTicker(clearEvery)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.ClearProductReviews("p1")
				clears.Add(1)
			}
		}
	}()

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	var wg sync.WaitGroup
	var errs atomic.Int64
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				var err error
				switch (id + j) % 4 {
				case 0:
					_, err = c.GetStore(ctx)
				case 1:
					_, err = c.GetProduct(ctx, products[j%len(products)])
				case 2:
					_, err = c.GetProductReviews(ctx, "p1", j%reviewsPages+1)
				default:
					_, err = c.GetStoreBannerURL(ctx)
				}
				if err != nil {
					errs.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()
	close(stop)

	duration := time.Since(start)
	totalOps := goroutines * opsPerG
	stats := c.Stats()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Errors           : %d\n", errs.Load())
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Platform Requests: %d (%d reviews clears)\n", stats.RequestCount, clears.Load())
	for _, m := range []string{"getStore", "getProduct", "getProductReviews", "getStoreBannerUrl"} {
		fmt.Printf("  %-18s: %d\n", m, p.Calls(m))
	}
	fmt.Printf("Coalesced        : %d\n", stats.Coalesced)
	fmt.Printf("Expired          : %d\n", stats.Expired)
	fmt.Printf("Hit Ratio        : %.4f\n", stats.HitRatio())
	fmt.Println("=========================================")
}
