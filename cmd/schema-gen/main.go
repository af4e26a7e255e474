// Schema Generator
//
// Generates JSON Schema files from the internal API request and response
// types so dashboard clients can validate payloads against the Go source.
//
// Usage:
//
//	go run ./cmd/schema-gen [-out ./schemas]
//
// Output:
//
//	rankings.json
//	sync.json
//	queue.json
//	reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/bizrank/review-service/internal/handlers"
	"github.com/bizrank/review-service/internal/jobs"
	"github.com/bizrank/review-service/internal/syncqueue"
	"github.com/bizrank/review-service/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func main() {
	outputDir := flag.String("out", "./schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range groups() {
		outputPath := filepath.Join(*outputDir, group.Output)
		if err := writeSchema(generateGroupSchema(group), outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outputPath)
	}
}

func groups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "rankings",
			Types: []any{
				handlers.ListRankingsRequest{},
				handlers.ListRankingsResponse{},
				handlers.AchievementsResponse{},
				types.Ranking{},
				types.Achievement{},
				types.AchievementProgress{},
			},
			Output: "rankings.json",
		},
		{
			Name: "sync",
			Types: []any{
				handlers.SyncRequest{},
				handlers.SyncResponse{},
				handlers.BulkSyncRequest{},
				syncqueue.BulkResult{},
				syncqueue.BulkProgress{},
				types.SyncItem{},
			},
			Output: "sync.json",
		},
		{
			Name: "queue",
			Types: []any{
				handlers.QueueStatsResponse{},
				handlers.RunJobResponse{},
				jobs.Status{},
				types.Task{},
			},
			Output: "queue.json",
		},
		{
			Name: "reports",
			Types: []any{
				handlers.ListReportsRequest{},
				handlers.ListReportsResponse{},
				types.ReportArchive{},
			},
			Output: "reports.json",
		},
	}
}

// generateGroupSchema merges the definitions of every type in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}
	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://bizrank.dev/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
