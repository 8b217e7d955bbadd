package service

import (
	"context"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/singleflight"

	"github.com/lyzr/cdn/common/blobstore"
	"github.com/lyzr/cdn/common/identity"
	"github.com/lyzr/cdn/common/logger"
	"github.com/lyzr/cdn/common/metrics"
	"github.com/lyzr/cdn/common/models"
	"github.com/lyzr/cdn/common/origin"
)

// Verifier checks fetched bytes against the requested content identifier
type Verifier interface {
	Verify(expected string, data []byte) error
}

// Transformer turns origin bytes into a rendition
type Transformer interface {
	Transform(data []byte, preset models.Preset, format models.OutputFormat) (*models.Rendition, error)
}

// PipelineConfig holds the knobs the pipeline reads at request time
type PipelineConfig struct {
	StorageTimeout time.Duration
	SingleFlight   bool
}

// PipelineService drives a request through resolve, cache lookup, fetch,
// verify, transform and store
type PipelineService struct {
	resolver    identity.Resolver
	fetcher     origin.Fetcher
	verifier    Verifier
	transformer Transformer
	store       blobstore.Store
	cfg         PipelineConfig
	metrics     *metrics.Metrics
	log         *logger.Logger

	group singleflight.Group
}

// NewPipelineService creates the pipeline
func NewPipelineService(
	resolver identity.Resolver,
	fetcher origin.Fetcher,
	verifier Verifier,
	transformer Transformer,
	store blobstore.Store,
	cfg PipelineConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *PipelineService {
	return &PipelineService{
		resolver:    resolver,
		fetcher:     fetcher,
		verifier:    verifier,
		transformer: transformer,
		store:       store,
		cfg:         cfg,
		metrics:     m,
		log:         log,
	}
}

// GetBlob returns the rendition for req. Failures are *PipelineError,
// except when ctx ends first, in which case ctx.Err() is returned.
//
// With single-flight enabled, concurrent requests for the same cache key
// share one run. The shared run ignores the cancellation of whichever
// caller started it and is bounded by the stage timeouts instead.
func (s *PipelineService) GetBlob(ctx context.Context, req models.BlobRequest) (*models.Rendition, error) {
	if !s.cfg.SingleFlight {
		return s.run(ctx, req)
	}

	ch := s.group.DoChan(req.CacheKey(), func() (interface{}, error) {
		return s.run(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.metrics.Coalesced.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Rendition), nil
	}
}

func (s *PipelineService) run(ctx context.Context, req models.BlobRequest) (*models.Rendition, error) {
	key := req.CacheKey()
	log := s.log.WithContext(ctx).WithCacheKey(key)
	preset := req.Preset.String()

	start := time.Now()
	originURL, err := s.resolver.ResolveOrigin(ctx, req.Actor)
	s.metrics.ObserveStage(metrics.StageResolve, start)
	if err != nil {
		return nil, s.fail(log, classifyResolveError(err))
	}

	start = time.Now()
	cached, found, err := s.storeGet(ctx, key)
	s.metrics.ObserveStage(metrics.StageStoreGet, start)
	if err != nil {
		s.metrics.CacheLookups.WithLabelValues(preset, metrics.LookupError).Inc()
		return nil, s.fail(log, &PipelineError{Kind: KindStorageReadFailed, Err: err})
	}
	if found {
		s.metrics.CacheLookups.WithLabelValues(preset, metrics.LookupHit).Inc()
		log.Debug("cache hit", "size_bytes", len(cached))
		return &models.Rendition{
			Data:     cached,
			MIMEType: sniffMIMEType(cached, req.Format),
			CacheHit: true,
		}, nil
	}
	s.metrics.CacheLookups.WithLabelValues(preset, metrics.LookupMiss).Inc()

	start = time.Now()
	raw, err := s.fetcher.FetchBlob(ctx, originURL, req.Actor, req.Content)
	s.metrics.ObserveStage(metrics.StageFetch, start)
	if err != nil {
		return nil, s.fail(log, &PipelineError{Kind: KindOriginFetchFailed, Err: err})
	}

	start = time.Now()
	err = s.verifier.Verify(req.Content.String(), raw)
	s.metrics.ObserveStage(metrics.StageVerify, start)
	if err != nil {
		return nil, s.fail(log, &PipelineError{Kind: KindIntegrityMismatch, Err: err})
	}

	start = time.Now()
	rendition, err := s.transformer.Transform(raw, req.Preset, req.Format)
	s.metrics.ObserveStage(metrics.StageTransform, start)
	if err != nil {
		return nil, s.fail(log, classifyTransformError(err))
	}

	s.storePut(ctx, key, rendition.Data, log)

	log.Info("rendition created",
		"origin", originURL,
		"source_bytes", len(raw),
		"output_bytes", len(rendition.Data),
	)
	return rendition, nil
}

func (s *PipelineService) storeGet(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	return s.store.Get(ctx, key)
}

// storePut persists the rendition. A failed write is logged and counted;
// the caller still gets its bytes.
func (s *PipelineService) storePut(ctx context.Context, key string, data []byte, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StorageTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.Put(ctx, key, data)
	s.metrics.ObserveStage(metrics.StageStorePut, start)
	if err != nil {
		s.metrics.StoreWriteFailures.Inc()
		log.Warn("failed to store rendition", "kind", KindStorageWriteFailed, "error", err)
	}
}

func (s *PipelineService) fail(log *logger.Logger, err *PipelineError) *PipelineError {
	s.metrics.PipelineErrors.WithLabelValues(string(err.Kind)).Inc()
	if err.StatusCode() >= 500 {
		log.Error("blob pipeline failed", "kind", err.Kind, "error", err.Err)
	} else {
		log.Warn("blob pipeline failed", "kind", err.Kind, "error", err.Err)
	}
	return err
}

// sniffMIMEType derives the content type of cached bytes, falling back to
// the requested format when detection is inconclusive
func sniffMIMEType(data []byte, format models.OutputFormat) string {
	mt := mimetype.Detect(data)
	for _, f := range models.Formats() {
		if mt.Is(f.MIMEType()) {
			return f.MIMEType()
		}
	}
	return format.MIMEType()
}
