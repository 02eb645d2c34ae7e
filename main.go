package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"forkful/api"
	"forkful/audit"
	"forkful/config"
	"forkful/extract"
	"forkful/merge"
	"forkful/pipeline"
	"forkful/quarantine"
)

func main() {
	cfg := config.Load()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize quarantine storage: %v", err)
	}

	securitySink, attemptSink, closeSinks := buildAuditSinks(cfg)
	defer closeSinks()

	scanner := quarantine.NewScanner(store, securitySink, quarantine.ScannerConfig{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ScoreThreshold:  cfg.SecurityThreshold,
		RetainRejected:  cfg.RetainRejected,
		ScanConcurrency: cfg.ScanConcurrency,
	})

	orch := pipeline.NewOrchestrator(
		scanner,
		merge.NewMerger(cfg.MinMergeConfidence),
		buildExtractors(cfg, store),
		attemptSink,
		pipeline.Policy{
			EscalateBelow:   cfg.EscalateBelow,
			AttemptTimeout:  cfg.AttemptTimeout,
			PipelineTimeout: cfg.PipelineTimeout,
		},
	)

	addr := ":" + cfg.Port
	r := api.NewRouter(orch, cfg.MaxUploadBytes)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  POST /api/v1/ingest")
	log.Println("  POST /api/v1/ingest/upload")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildStore picks S3-backed storage when buckets are configured, local
// directories otherwise.
func buildStore(cfg config.Config) (quarantine.Store, error) {
	if cfg.S3QuarantineBucket != "" && cfg.S3MediaBucket != "" {
		log.Printf("Using S3 storage (quarantine: %s, media: %s)", cfg.S3QuarantineBucket, cfg.S3MediaBucket)
		return quarantine.NewS3Store(context.Background(), quarantine.S3Config{
			Region:           cfg.S3Region,
			Profile:          cfg.S3Profile,
			UsePathStyle:     cfg.S3UsePathStyle,
			QuarantineBucket: cfg.S3QuarantineBucket,
			MediaBucket:      cfg.S3MediaBucket,
		})
	}
	return quarantine.NewLocalStore(cfg.QuarantineDir, cfg.MediaDir)
}

// buildAuditSinks prefers Kafka when brokers are configured and falls back
// to JSON lines in the process log.
func buildAuditSinks(cfg config.Config) (audit.SecuritySink, audit.AttemptSink, func()) {
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := audit.NewKafkaProducer(audit.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			SecurityTopic: cfg.SecurityEventTopic,
			AttemptTopic:  cfg.AttemptEventTopic,
		})
		if err == nil {
			return producer, producer, func() {
				if err := producer.Close(); err != nil {
					log.Printf("Warning: Kafka producer close failed: %v", err)
				}
			}
		}
		log.Printf("Warning: Kafka audit producer unavailable, falling back to log sink: %v", err)
	}
	sink := audit.LogSink{}
	return sink, sink, func() {}
}

func buildExtractors(cfg config.Config, media quarantine.Store) []extract.Extractor {
	fetcher := extract.NewWebFetcher(cfg.RenderServiceURL, int64(cfg.RenderConcurrency), cfg.AttemptTimeout)

	var cache extract.Cache
	if cfg.RedisAddr != "" {
		if rc := extract.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL); rc != nil {
			cache = rc
		}
	}

	var completion extract.CompletionClient
	if apiKey := os.Getenv("COHERE_API_KEY"); apiKey != "" {
		completion = extract.NewCohereCompletion(apiKey, cfg.CohereModel)
	} else {
		log.Println("Warning: COHERE_API_KEY not set, AI text extraction disabled")
	}

	extractors := []extract.Extractor{
		extract.NewPageScrapeExtractor(fetcher),
		extract.NewSocialPostExtractor(fetcher, cfg.SocialConfidenceCap),
		extract.NewImageExtractor(extract.NewTesseractRecognizer(cfg.TesseractLangs, media)),
	}
	if completion != nil {
		extractors = append(extractors, extract.NewAITextExtractor(completion, cache))
	}
	return extractors
}
