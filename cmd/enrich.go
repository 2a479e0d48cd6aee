package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/tidewater-group/outreach-cli/internal/enrich"
	"github.com/tidewater-group/outreach-cli/internal/model"
	"github.com/tidewater-group/outreach-cli/pkg/aichat"
)

var (
	enrichInput   string
	enrichOutput  string
	enrichFormat  string
	enrichMode    string
	enrichContext string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a file of contacts through the scoring pipeline",
	Long:  "Reads a JSON array of contacts, runs the evidence-gathering and scoring pipeline per contact with a fixed inter-contact delay, and writes the enrichment results.",
	RunE:  runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "input JSON file of contacts (required)")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output file (default: stdout)")
	enrichCmd.Flags().StringVar(&enrichFormat, "format", "json", "output format: json or yaml")
	enrichCmd.Flags().StringVar(&enrichMode, "mode", "", "model preset: fast or quality (default: config)")
	enrichCmd.Flags().StringVar(&enrichContext, "context", "", "strategic context text file (default: config)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	contacts, err := loadContacts(enrichInput)
	if err != nil {
		return err
	}

	knowledge, err := loadKnowledge()
	if err != nil {
		return err
	}

	mode := enrich.Mode(cfg.Enrich.Mode)
	if enrichMode != "" {
		mode = enrich.Mode(enrichMode)
	}

	// A missing API key is a legal configuration: the pipeline reports
	// sdk_unavailable per contact instead of refusing to start.
	var client aichat.Client
	if cfg.Anthropic.Key != "" {
		client = aichat.NewClient(cfg.Anthropic.Key, cfg.Anthropic.DefaultModel)
	} else {
		zap.L().Warn("enrich: no anthropic key configured, chat capability disabled")
	}

	var fetcher enrich.Fetcher
	if !cfg.Enrich.SkipVerify {
		fetcher = enrich.NewHTTPFetcher()
	}

	pipe := enrich.New(client, fetcher, enrich.ModelSet{
		Fast:    cfg.Models.Fast,
		Quality: cfg.Models.Quality,
	}, mode, knowledge)

	delay := time.Duration(cfg.Enrich.ContactDelayMS) * time.Millisecond
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	batchSize := cfg.Enrich.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	ctx := cmd.Context()
	results := make([]model.EnrichmentResult, 0, len(contacts))

	for i, contact := range contacts {
		// Cancellation is coarse: checked between whole-contact runs only.
		if ctx.Err() != nil {
			zap.L().Warn("enrich: cancelled",
				zap.Int("completed", len(results)),
				zap.Int("total", len(contacts)),
			)
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		results = append(results, pipe.Enrich(ctx, contact))

		if (i+1)%batchSize == 0 && i+1 < len(contacts) {
			zap.L().Info("enrich: batch complete",
				zap.Int("processed", i+1),
				zap.Int("total", len(contacts)),
			)
		}
	}

	return writeResults(results, enrichOutput, enrichFormat)
}

func loadContacts(path string) ([]model.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read input")
	}

	var contacts []model.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, eris.Wrap(err, "enrich: parse contacts")
	}
	return contacts, nil
}

func loadKnowledge() (enrich.KnowledgeProvider, error) {
	path := cfg.Enrich.ContextFile
	if enrichContext != "" {
		path = enrichContext
	}
	if path == "" {
		return enrich.StaticKnowledge(""), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read context file")
	}
	return enrich.StaticKnowledge(data), nil
}

func writeResults(results []model.EnrichmentResult, path, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml":
		data, err = yaml.Marshal(results)
	default:
		data, err = json.MarshalIndent(results, "", "  ")
	}
	if err != nil {
		return eris.Wrap(err, "enrich: marshal results")
	}

	if path == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "enrich: write output")
	}

	zap.L().Info("enrich: results written",
		zap.String("path", path),
		zap.Int("contacts", len(results)),
	)
	return nil
}
