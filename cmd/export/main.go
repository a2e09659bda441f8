// Command export writes the stored relevant items as a JSON archive for the
// downstream publisher.
// Usage: mouldwire-export [--since 168h] [--out items.json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mouldwire/internal/domain/entity"
	"mouldwire/internal/infra/db"
	"mouldwire/internal/infra/persistence/postgres"
	"mouldwire/internal/infra/persistence/sqlite"
	"mouldwire/internal/observability/logging"
	"mouldwire/internal/repository"
)

// ItemOutput is the JSON archive record for one published item.
type ItemOutput struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category"`
	Subjects    []string  `json:"subjects"`
	Contexts    []string  `json:"contexts"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArchiveOutput wraps the exported items with the query window.
type ArchiveOutput struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Since       time.Time    `json:"since"`
	Count       int          `json:"count"`
	Items       []ItemOutput `json:"items"`
}

func main() {
	var (
		since   time.Duration
		outPath string
	)

	flag.DurationVar(&since, "since", 7*24*time.Hour, "Export items stored within this window (e.g. 24h, 168h)")
	flag.StringVar(&outPath, "out", "", "Output file path (default: stdout)")
	flag.Parse()

	if since <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --since must be positive, got %v\n", since)
		os.Exit(1)
	}

	logger := logging.NewTextLogger()

	database, driver := db.Open()
	defer func() { _ = database.Close() }()

	var itemRepo repository.ItemRepository
	switch driver {
	case db.DriverPostgres:
		itemRepo = postgres.NewItemRepo(database)
	default:
		itemRepo = sqlite.NewItemRepo(database)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-since)
	items, err := itemRepo.ListSince(ctx, cutoff)
	if err != nil {
		logger.Error("failed to list items", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to list items: %v\n", err)
		os.Exit(1)
	}

	archive := ArchiveOutput{
		GeneratedAt: time.Now().UTC(),
		Since:       cutoff.UTC(),
		Count:       len(items),
		Items:       toOutput(items),
	}

	payload, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to encode archive: %v\n", err)
		os.Exit(1)
	}
	payload = append(payload, '\n')

	if outPath == "" {
		if _, err := os.Stdout.Write(payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write archive: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	logger.Info("archive written",
		slog.String("path", outPath),
		slog.Int("items", len(items)))
}

func toOutput(items []*entity.PublishedItem) []ItemOutput {
	out := make([]ItemOutput, 0, len(items))
	for _, it := range items {
		out = append(out, ItemOutput{
			ID:          it.ID,
			Fingerprint: it.Fingerprint,
			Title:       it.Title,
			Link:        it.Link,
			SourceName:  it.SourceName,
			Category:    it.Category,
			Subjects:    it.Subjects,
			Contexts:    it.Contexts,
			Summary:     it.Summary,
			PublishedAt: it.PublishedAt,
			CreatedAt:   it.CreatedAt,
		})
	}
	return out
}
