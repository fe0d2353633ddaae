package main

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/visapath/i20-processor/internal/ocr"
	"github.com/visapath/i20-processor/internal/pipeline"
	"github.com/visapath/i20-processor/internal/resilience"
	"github.com/visapath/i20-processor/internal/storage"
	"github.com/visapath/i20-processor/internal/store"
	"github.com/visapath/i20-processor/pkg/anthropic"
)

// pipelineEnv holds the wired processing dependencies for a command run.
type pipelineEnv struct {
	Store     store.Store
	Processor *pipeline.Processor
}

func (e *pipelineEnv) Close() {
	_ = e.Store.Close()
}

// initPipeline validates config and wires the store, OCR provider, Anthropic
// client, and processor.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load aws config")
	}

	reader := storage.NewS3Reader(awsCfg)
	extractor, err := ocr.NewExtractor(ocr.Options{
		Provider:     cfg.OCR.Provider,
		MistralKey:   cfg.OCR.MistralKey,
		MistralModel: cfg.OCR.MistralModel,
	}, awsCfg, reader)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	policy := resilience.DefaultPolicy()
	if cfg.Pipeline.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Pipeline.MaxAttempts
	}
	if cfg.Pipeline.BaseBackoffSecs > 0 {
		policy.BaseBackoff = time.Duration(cfg.Pipeline.BaseBackoffSecs) * time.Second
	}

	var limiter *rate.Limiter
	if cfg.Pipeline.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Pipeline.RequestsPerSec), 1)
	}

	structurer := pipeline.NewStructurer(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		limiter,
		policy,
	)

	return &pipelineEnv{
		Store:     st,
		Processor: pipeline.NewProcessor(extractor, structurer, st, nil),
	}, nil
}
