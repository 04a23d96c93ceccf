// Command loadgen hammers a running server with concurrent availability
// reads and admin bulk writes, then reports success/failure counts. The
// writes all target disjoint key ranges, so the final map size must equal
// the number of successful writers times the batch size.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	readers      = 20
	writers      = 5
	readsPerConn = 50
	batchSize    = 10
)

func serverURL() string {
	if url := os.Getenv("SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func main() {
	base := serverURL()
	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		log.Fatal("ADMIN_TOKEN is required for the write load")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	var readOK, readFail, writeOK, writeFail atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < readsPerConn; j++ {
				resp, err := client.Get(base + "/api/availability/products")
				if err != nil || resp.StatusCode != http.StatusOK {
					readFail.Add(1)
					if resp != nil {
						resp.Body.Close()
					}
					continue
				}
				resp.Body.Close()
				readOK.Add(1)
			}
		}()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			patch := make(map[string]bool, batchSize)
			for i := 0; i < batchSize; i++ {
				patch[fmt.Sprintf("loadgen-w%d-p%d", w, i)] = i%2 == 0
			}
			body, _ := json.Marshal(map[string]interface{}{
				"productsAvailability": patch,
				"actor":                fmt.Sprintf("loadgen-%d", w),
			})

			req, err := http.NewRequest(http.MethodPut, base+"/api/availability/products", bytes.NewReader(body))
			if err != nil {
				writeFail.Add(1)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := client.Do(req)
			if err != nil || resp.StatusCode != http.StatusOK {
				writeFail.Add(1)
				if resp != nil {
					resp.Body.Close()
				}
				return
			}
			resp.Body.Close()
			writeOK.Add(1)
		}(w)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOAD RESULTS ==========")
	fmt.Printf("Reads OK/Fail:    %d/%d\n", readOK.Load(), readFail.Load())
	fmt.Printf("Writes OK/Fail:   %d/%d\n", writeOK.Load(), writeFail.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==================================")

	// Verify every successful write is visible.
	resp, err := client.Get(base + "/api/availability/products")
	if err != nil {
		log.Fatalf("final read failed: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		ProductsAvailability map[string]bool `json:"productsAvailability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Fatalf("decode final read: %v", err)
	}

	visible := 0
	for k := range payload.ProductsAvailability {
		if len(k) > 8 && k[:8] == "loadgen-" {
			visible++
		}
	}
	want := int(writeOK.Load()) * batchSize
	if visible == want {
		fmt.Printf("PASS: %d written keys visible\n", visible)
	} else {
		fmt.Printf("FAIL: expected %d visible keys, got %d\n", want, visible)
	}
}
