package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/config"
	"github.com/repscan/app-scanner/internal/narrative"
	"github.com/repscan/app-scanner/internal/orchestrator"
	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/providers/triage"
	"github.com/repscan/app-scanner/internal/providers/virustotal"
)

// scanctl runs a single scan from the command line and prints the result
// record as JSON.
func main() {
	filePath := flag.String("file", "", "Path of a file to scan")
	rawURL := flag.String("url", "", "URL to scan")
	flag.Parse()

	logger := log.Default()

	if (*filePath == "") == (*rawURL == "") {
		logger.Fatal("exactly one of -file or -url is required")
	}

	cfg := config.Load()

	zlog := zap.NewNop()
	registry := providers.NewRegistry()
	registry.Register(virustotal.NewClient(cfg.VTAPIKey, cfg.ProviderTimeout, zlog))
	registry.Register(triage.NewClient(cfg.TriageAPIKey, cfg.ProviderTimeout, zlog))
	generator := narrative.NewOpenAIGenerator(cfg.AIAPIKey, cfg.AIModel, cfg.NarrativeTimeout, zlog)

	orch := orchestrator.New(registry, generator, zlog)

	ctx := context.Background()
	var (
		result any
		err    error
	)
	if *filePath != "" {
		content, readErr := os.ReadFile(*filePath)
		if readErr != nil {
			logger.Fatal("failed to read file:", readErr)
		}
		result, err = orch.ScanFile(ctx, content, *filePath)
	} else {
		result, err = orch.ScanURL(ctx, *rawURL)
	}
	if err != nil {
		logger.Fatal("scan failed:", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("failed to marshal result:", err)
	}
	fmt.Println(string(data))
}
