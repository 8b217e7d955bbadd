package cdn_test

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"
)

// Configuration from environment
var (
	cdnURL      = getEnv("CDN_URL", "http://localhost:3000")
	blobPath    = getEnv("PERF_BLOB_PATH", "")
	numCalls    = getEnvInt("PERF_NUM_CALLS", 10000)
	concurrency = getEnvInt("PERF_CONCURRENCY", 10)
)

// requireCDN skips unless a CDN is running and PERF_BLOB_PATH names a servable blob,
// e.g. /avatar/did:plc:.../bafkrei.../webp
func requireCDN(tb testing.TB) {
	tb.Helper()
	if blobPath == "" {
		tb.Skip("PERF_BLOB_PATH not set")
	}
	resp, err := http.Get(cdnURL + "/health")
	if err != nil {
		tb.Skip("CDN not running")
	}
	resp.Body.Close()
}

// BenchmarkFetchCachedBlob measures the cache-hit path end to end.
//
// Usage:
//
//	PERF_BLOB_PATH=/avatar/did:plc:abc/bafkrei.../jpeg go test -bench=BenchmarkFetchCachedBlob -benchtime=10000x
func BenchmarkFetchCachedBlob(b *testing.B) {
	requireCDN(b)

	// warm the cache so every timed request is a hit
	warm, err := http.Get(cdnURL + blobPath)
	if err != nil {
		b.Fatalf("warm-up failed: %v", err)
	}
	io.Copy(io.Discard, warm.Body)
	warm.Body.Close()
	if warm.StatusCode != http.StatusOK {
		b.Fatalf("warm-up status: %d", warm.StatusCode)
	}

	var totalBytes int64

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		resp, err := http.Get(cdnURL + blobPath)
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			b.Fatalf("Failed to read response: %v", err)
		}
		totalBytes += int64(len(body))

		if resp.StatusCode != http.StatusOK {
			b.Fatalf("Unexpected status: %d", resp.StatusCode)
		}
		if resp.Header.Get("X-Cache") != "HIT" {
			b.Fatalf("expected a cache hit, got %q", resp.Header.Get("X-Cache"))
		}
	}

	b.StopTimer()

	elapsed := b.Elapsed()
	b.ReportMetric(float64(b.N)/elapsed.Seconds(), "ops/sec")
	b.ReportMetric(float64(totalBytes)/elapsed.Seconds()/1024/1024, "MB/s")
}

// TestFetchBlobConcurrent hammers one blob from many clients
func TestFetchBlobConcurrent(t *testing.T) {
	requireCDN(t)

	t.Logf("Concurrent fetch test:")
	t.Logf("  Total calls: %d", numCalls)
	t.Logf("  Concurrency: %d", concurrency)
	t.Logf("  Blob: %s%s", cdnURL, blobPath)

	start := time.Now()

	callsPerWorker := numCalls / concurrency
	doneChan := make(chan workerStats, concurrency)

	for w := 0; w < concurrency; w++ {
		go func(workerID int) {
			stats := workerStats{workerID: workerID}
			workerStart := time.Now()

			for i := 0; i < callsPerWorker; i++ {
				reqStart := time.Now()

				resp, err := http.Get(cdnURL + blobPath)
				if err != nil {
					stats.errors++
					continue
				}
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					stats.errors++
					continue
				}

				reqDuration := time.Since(reqStart)
				stats.totalCalls++
				stats.totalBytes += int64(len(body))
				stats.totalLatency += reqDuration
				if reqDuration < stats.minLatency || stats.minLatency == 0 {
					stats.minLatency = reqDuration
				}
				if reqDuration > stats.maxLatency {
					stats.maxLatency = reqDuration
				}
			}

			stats.duration = time.Since(workerStart)
			doneChan <- stats
		}(w)
	}

	var totalStats workerStats
	for i := 0; i < concurrency; i++ {
		stats := <-doneChan
		totalStats.totalCalls += stats.totalCalls
		totalStats.totalBytes += stats.totalBytes
		totalStats.totalLatency += stats.totalLatency
		totalStats.errors += stats.errors

		if stats.minLatency < totalStats.minLatency || totalStats.minLatency == 0 {
			totalStats.minLatency = stats.minLatency
		}
		if stats.maxLatency > totalStats.maxLatency {
			totalStats.maxLatency = stats.maxLatency
		}
	}

	elapsed := time.Since(start)
	if totalStats.totalCalls == 0 {
		t.Fatalf("no successful calls (%d errors)", totalStats.errors)
	}

	t.Logf("Results:")
	t.Logf("  Successful: %d, errors: %d", totalStats.totalCalls, totalStats.errors)
	t.Logf("  Throughput: %.0f req/s", float64(totalStats.totalCalls)/elapsed.Seconds())
	t.Logf("  Latency avg: %v, min: %v, max: %v",
		totalStats.totalLatency/time.Duration(totalStats.totalCalls),
		totalStats.minLatency,
		totalStats.maxLatency,
	)
	t.Logf("  Transferred: %s", formatBytes(totalStats.totalBytes))

	if totalStats.errors > 0 {
		t.Errorf("%d requests failed", totalStats.errors)
	}
}

type workerStats struct {
	workerID     int
	totalCalls   int
	totalBytes   int64
	totalLatency time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	errors       int
	duration     time.Duration
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
