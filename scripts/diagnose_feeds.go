// Feed registry diagnostic. Probes every feed in the YAML registry once,
// without dedup or matching, and writes a text summary plus a JSON report.
// Useful when a source goes quiet: distinguishes dead URLs, redirects,
// parse failures, and feeds that are alive but empty.
//
// Usage: go run scripts/diagnose_feeds.go [-config config.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"mouldwire/internal/config"
)

// FeedDiagnostic is the probe result for a single registry entry.
type FeedDiagnostic struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Category      string `json:"category"`
	Status        string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT", "REDIRECT"
	HTTPCode      int    `json:"http_code"`
	ItemCount     int    `json:"item_count"`
	LatestDate    string `json:"latest_date"`
	ErrorMessage  string `json:"error_message,omitempty"`
	FeedType      string `json:"feed_type"` // "rss", "atom", "json", "unknown"
	RedirectURL   string `json:"redirect_url,omitempty"`
	ResponseTime  int64  `json:"response_time_ms"`
	ContentLength int64  `json:"content_length"`
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the feed registry YAML")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", configPath, err)
	}

	log.Printf("Diagnosing %d feed sources...", len(cfg.Feeds))

	diagnostics := make([]FeedDiagnostic, 0, len(cfg.Feeds))
	for i, feed := range cfg.Feeds {
		log.Printf("[%d/%d] Diagnosing: %s", i+1, len(cfg.Feeds), feed.Name)
		diag := diagnoseFeed(feed, 30*time.Second)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	generateReport(diagnostics)
	generateJSONReport(diagnostics)
}

func diagnoseFeed(feed config.FeedConfig, timeout time.Duration) FeedDiagnostic {
	diag := FeedDiagnostic{
		Name:     feed.Name,
		URL:      feed.URL,
		Category: feed.Category,
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		diag.Status = "REQUEST_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	req.Header.Set("User-Agent", "MouldwireBot/1.0 (+https://news.planetmould.com)")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	diag.ResponseTime = time.Since(startTime).Milliseconds()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
			diag.ErrorMessage = fmt.Sprintf("Request timeout after %v", timeout)
		} else {
			diag.Status = "HTTP_ERROR"
			diag.ErrorMessage = err.Error()
		}
		return diag
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	diag.HTTPCode = resp.StatusCode
	diag.ContentLength = resp.ContentLength

	if resp.Request.URL.String() != feed.URL {
		diag.RedirectURL = resp.Request.URL.String()
		diag.Status = "REDIRECT"
	}

	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)
		return diag
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		diag.Status = "READ_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		diag.Status = "PARSE_ERROR"
		diag.FeedType = "unknown"
		diag.ErrorMessage = err.Error()
		return diag
	}

	diag.FeedType = parsed.FeedType
	diag.ItemCount = len(parsed.Items)
	if len(parsed.Items) > 0 {
		if parsed.Items[0].PublishedParsed != nil {
			diag.LatestDate = parsed.Items[0].PublishedParsed.Format(time.RFC3339)
		} else {
			diag.LatestDate = parsed.Items[0].Published
		}
	}

	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		diag.ErrorMessage = "Feed has no items"
		return diag
	}

	if diag.Status != "REDIRECT" {
		diag.Status = "OK"
	}
	return diag
}

func generateReport(diagnostics []FeedDiagnostic) {
	f, err := os.Create("feed_diagnostic_report.txt")
	if err != nil {
		log.Printf("Failed to create report file: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close report file: %v", err)
		}
	}()

	writef := func(format string, args ...interface{}) {
		if _, err := fmt.Fprintf(f, format, args...); err != nil {
			log.Printf("Failed to write to report: %v", err)
		}
	}

	writef("===============================================\n")
	writef("Mouldwire Feed Diagnostic Report\n")
	writef("Generated: %s\n", time.Now().Format(time.RFC3339))
	writef("Total Sources: %d\n", len(diagnostics))
	writef("===============================================\n\n")

	statusCount := make(map[string]int)
	var okCount, errorCount int
	for _, d := range diagnostics {
		statusCount[d.Status]++
		if d.Status == "OK" || d.Status == "REDIRECT" {
			okCount++
		} else {
			errorCount++
		}
	}

	writef("SUMMARY:\n")
	writef("  Working: %d (%.1f%%)\n", okCount, float64(okCount)/float64(len(diagnostics))*100)
	writef("  Broken: %d (%.1f%%)\n", errorCount, float64(errorCount)/float64(len(diagnostics))*100)
	writef("\nSTATUS BREAKDOWN:\n")
	for status, count := range statusCount {
		writef("  %s: %d\n", status, count)
	}

	writef("\nDETAILS:\n")
	for _, d := range diagnostics {
		writef("\n[%s] %s (%s)\n", d.Status, d.Name, d.Category)
		writef("  URL: %s\n", d.URL)
		if d.RedirectURL != "" {
			writef("  Redirected to: %s\n", d.RedirectURL)
		}
		if d.ErrorMessage != "" {
			writef("  Error: %s\n", d.ErrorMessage)
		}
		if d.ItemCount > 0 {
			writef("  Items: %d, latest: %s\n", d.ItemCount, d.LatestDate)
		}
		writef("  Response: HTTP %d in %dms\n", d.HTTPCode, d.ResponseTime)
	}

	log.Println("Text report written to feed_diagnostic_report.txt")
}

func generateJSONReport(diagnostics []FeedDiagnostic) {
	payload, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Printf("Failed to encode JSON report: %v", err)
		return
	}
	if err := os.WriteFile("feed_diagnostic_report.json", payload, 0o644); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}
	log.Println("JSON report written to feed_diagnostic_report.json")
}
