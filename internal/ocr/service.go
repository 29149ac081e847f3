// Package ocr owns the lifecycle of the vision OCR model and exposes a
// single text-extraction operation over it.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/crmkit/lead-extractor/internal/domain"
)

const (
	// extractPrompt asks for literal text, business cards included.
	extractPrompt = "Extract all text from this document section. Include all business cards and contact information."

	// responseMarker separates the chat template echo from the model's
	// answer in the decoded output.
	responseMarker = "assistant\n"

	maxNewTokens = 2048
	jpegQuality  = 90

	// quantizationThresholdGB splits high-memory accelerators (which can
	// afford the more aggressive 4-bit weights) from smaller ones.
	quantizationThresholdGB = 15
)

// Config holds OCR service settings.
type Config struct {
	Model           string
	WeightsToken    string
	QueueDepth      int
	GenerateTimeout time.Duration
}

// Service wraps the inference runtime with an initialize/shutdown
// lifecycle and a single-flight guarantee around extraction: at most one
// inference call is in flight at any instant, with a bounded admission
// queue in front of it.
type Service struct {
	rt     *RuntimeClient
	cfg    Config
	logger zerolog.Logger

	// infMu serializes inference; the accelerator cannot run concurrent
	// passes without corrupting state.
	infMu sync.Mutex
	queue *semaphore.Weighted

	ready    atomic.Bool
	queued   atomic.Int64
	downOnce sync.Once
}

// NewService creates the OCR service. The model is not loaded until
// Initialize is called.
func NewService(rt *RuntimeClient, cfg Config, logger zerolog.Logger) *Service {
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 1
	}
	return &Service{
		rt:     rt,
		cfg:    cfg,
		logger: logger.With().Str("component", "ocr").Logger(),
		queue:  semaphore.NewWeighted(int64(cfg.QueueDepth)),
	}
}

// Initialize acquires the accelerator and loads model weights. It selects
// the quantization from available accelerator memory: high-memory devices
// take 4-bit weights, smaller ones 8-bit. A missing weights credential or
// an unreachable accelerator is fatal; the process cannot serve requests.
func (s *Service) Initialize(ctx context.Context) error {
	if s.cfg.WeightsToken == "" {
		return domain.ConfigError("weights token (HF_TOKEN) is not set", nil)
	}

	device, err := s.rt.Device(ctx)
	if err != nil {
		return domain.ConfigError("no usable accelerator", err)
	}

	quantization := "int8"
	if device.TotalMemoryGB >= quantizationThresholdGB {
		quantization = "nf4"
	}

	s.logger.Info().
		Str("device", device.Name).
		Float64("memory_gb", device.TotalMemoryGB).
		Str("quantization", quantization).
		Str("model", s.cfg.Model).
		Msg("Loading OCR model")

	if err := s.rt.Load(ctx, LoadRequest{
		Model:        s.cfg.Model,
		Quantization: quantization,
		Token:        s.cfg.WeightsToken,
	}); err != nil {
		return domain.ConfigError("failed to load model weights", err)
	}

	s.ready.Store(true)
	s.logger.Info().Msg("OCR model ready")
	return nil
}

// Ready reports whether the model is loaded and accepting work.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// ExtractText runs one OCR pass over the image and returns the decoded
// text. Calls are serialized system-wide; callers beyond the admission
// queue depth are rejected rather than piling up.
func (s *Service) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if !s.ready.Load() {
		return "", domain.UnavailableError("OCR model not initialized", nil)
	}

	if !s.queue.TryAcquire(1) {
		s.logger.Warn().Int64("queued", s.queued.Load()).Msg("Extraction queue full, rejecting")
		return "", domain.UnavailableError("extraction queue full", nil)
	}
	defer s.queue.Release(1)

	depth := s.queued.Add(1)
	defer s.queued.Add(-1)
	s.logger.Debug().Int64("queue_depth", depth).Msg("Waiting for inference slot")

	s.infMu.Lock()
	defer s.infMu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	imageB64, err := encodeImage(img)
	if err != nil {
		return "", domain.OCRError("failed to encode page image", err)
	}

	genCtx := ctx
	if s.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.GenerateTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.rt.Generate(genCtx, GenerateRequest{
		Prompt:    extractPrompt,
		ImageB64:  imageB64,
		MaxTokens: maxNewTokens,
		Greedy:    true,
	})
	if err != nil {
		return "", domain.OCRError("inference failed", err)
	}

	s.logger.Debug().Dur("took", time.Since(start)).Msg("Inference complete")
	return stripResponseMarker(resp.Text), nil
}

// Shutdown releases the model and accelerator memory. Idempotent and safe
// to call even if Initialize never ran.
func (s *Service) Shutdown(ctx context.Context) {
	s.downOnce.Do(func() {
		if !s.ready.Swap(false) {
			return
		}
		if err := s.rt.Unload(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Model unload failed")
			return
		}
		s.logger.Info().Msg("OCR model released")
	})
}

// ReleaseCachedMemory hints the runtime to drop cached accelerator
// allocations. Best-effort: failures are logged and swallowed.
func (s *Service) ReleaseCachedMemory(ctx context.Context) {
	if !s.ready.Load() {
		return
	}
	if err := s.rt.ReleaseCache(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("Cache release hint failed")
	}
}

// stripResponseMarker returns the portion of the decoded output after
// the model's final response marker, or the full output when no marker
// is present.
func stripResponseMarker(text string) string {
	if idx := strings.LastIndex(text, responseMarker); idx >= 0 {
		return strings.TrimSpace(text[idx+len(responseMarker):])
	}
	return text
}

func encodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
