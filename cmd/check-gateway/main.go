// Command check-gateway sends one compliance check, and optionally one
// receipt scan, through the configured AI provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/config"
	"github.com/garyjia/expense-wizard/internal/container"
	"github.com/garyjia/expense-wizard/internal/domain/entity"
	"github.com/garyjia/expense-wizard/internal/infrastructure/document"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	receipt := flag.String("receipt", "", "Optional receipt image or PDF to scan")
	timeout := flag.Duration("timeout", 60*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		fmt.Fprintf(os.Stderr, "Set AI_API_KEY (and AI_PROVIDER if not gemini) before running.\n")
		os.Exit(1)
	}

	fmt.Println("=== AI Gateway Check ===")
	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.AI.Provider)
	fmt.Printf("  Model: %s\n", valueOr(cfg.AI.Model, "(provider default)"))
	fmt.Printf("  API key length: %d chars\n", len(cfg.AI.APIKey))
	fmt.Printf("  Timeout: %v\n", *timeout)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	gateway, err := container.ProvideGateway(ctx, cfg.AI, cfg.Wizard.Company, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create gateway: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Gateway initialized")

	line := &entity.ExpenseLineItem{
		Date:           time.Now().Format(entity.DateLayout),
		ExpenseItem:    entity.CategoryMeals,
		Amount:         120,
		Memo:           "Team dinner",
		BusinessReason: "Client visit",
	}
	fmt.Println("\nSample line:")
	fmt.Printf("  Category: %s\n", line.ExpenseItem)
	fmt.Printf("  Amount: $%.2f\n", line.Amount)
	fmt.Printf("  Memo: %s\n\n", line.Memo)

	start := time.Now()
	verdict, err := gateway.CheckPolicyCompliance(ctx, line, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ ERROR: compliance check failed after %v\n", time.Since(start))
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Possible causes:\n")
		fmt.Fprintf(os.Stderr, "  1. Invalid or expired AI_API_KEY\n")
		fmt.Fprintf(os.Stderr, "  2. Network connectivity issue\n")
		fmt.Fprintf(os.Stderr, "  3. Model name not available to this key\n")
		os.Exit(1)
	}
	fmt.Printf("✓ Compliance reply in %v\n", time.Since(start))

	switch {
	case verdict.Skipped:
		fmt.Println("  Skipped: no provider configured")
	case verdict.Compliant:
		fmt.Println("  Compliant")
	default:
		fmt.Printf("  Warning: %s\n", verdict.Warning)
	}

	if *receipt != "" {
		data, err := os.ReadFile(*receipt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		doc, err := document.NewNormalizer(cfg.Wizard.MaxUploadBytes).Normalize(filepath.Base(*receipt), "", data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nScanning %s (%s)...\n", doc.Name, doc.MIMEType)
		start = time.Now()
		extracted, err := gateway.ParseReceipt(ctx, doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ ERROR: receipt scan failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Receipt parsed in %v\n", time.Since(start))

		out, _ := json.MarshalIndent(extracted, "", "  ")
		fmt.Println(string(out))
	}

	fmt.Println("\n✅ Gateway check PASSED")
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
