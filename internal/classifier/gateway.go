// Package classifier identifies a vehicle's brand, model, year and engine from a photo by
// calling an external model, retrying while the model reports overload.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/car-maintenance/internal/apperr"
	"github.com/ukydev/car-maintenance/internal/metrics"
	"github.com/ukydev/car-maintenance/internal/models"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
)

// ImageMetadata describes the submitted image.
type ImageMetadata struct {
	Filename string
	MimeType string
}

// RawResponse is the unparsed text returned by the model.
type RawResponse struct {
	Text string
}

// Client submits one classification request.
type Client interface {
	Submit(ctx context.Context, image []byte, meta ImageMetadata) (RawResponse, error)
}

// Gateway wraps a Client with bounded exponential backoff and response validation.
type Gateway struct {
	client      Client
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         logrus.FieldLogger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the Gateway's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithMaxAttempts overrides the number of attempts.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides the delay after the first failed attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

// NewGateway creates a Gateway around client.
func NewGateway(client Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Classify submits image and returns the validated classification.
//
// Only ErrOverloaded failures are retried; the delay after failed attempt i is
// baseDelay*2^i. ctx is honoured between attempts. A started attempt always runs to
// completion. Errors carry one of the apperr kinds and never wrap the transport error.
func (g *Gateway) Classify(ctx context.Context, image []byte, meta ImageMetadata) (models.Classification, error) {
	if len(image) == 0 {
		return models.Classification{}, apperr.InvalidArgument("image is empty")
	}
	logger := g.log.WithField("filename", meta.Filename)

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Classification{}, apperr.ServiceUnavailable("classification aborted after %d attempts: %v", attempt, err)
		}

		start := time.Now()
		raw, err := g.client.Submit(context.WithoutCancel(ctx), image, meta)
		outcome := attemptOutcome(err)
		metrics.ClassifierAttemptsTotal.WithLabelValues(outcome).Inc()
		metrics.ClassifierLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

		if err == nil {
			result, perr := ParseClassification(raw.Text)
			if perr != nil {
				logger.WithError(perr).Warn("Classifier returned an invalid payload")
				return models.Classification{}, perr
			}
			logger.WithFields(logrus.Fields{"attempt": attempt + 1, "brand": result.Brand, "model": result.Model}).Info("Classified vehicle image")
			return result, nil
		}

		lastErr = err
		if !errors.Is(err, ErrOverloaded) {
			logger.WithError(err).WithField("attempt", attempt+1).Error("Classification failed")
			return models.Classification{}, failure(err)
		}
		if attempt == g.maxAttempts-1 {
			break
		}

		delay := g.baseDelay << attempt
		logger.WithFields(logrus.Fields{"attempt": attempt + 1, "delay": delay}).Warn("Classifier overloaded, retrying")
		if err := g.sleep(ctx, delay); err != nil {
			return models.Classification{}, apperr.ServiceUnavailable("classification aborted after %d attempts: %v", attempt+1, err)
		}
	}

	logger.WithError(lastErr).WithField("attempts", g.maxAttempts).Error("Classifier still overloaded, giving up")
	return models.Classification{}, apperr.ServiceUnavailable("classifier overloaded after %d attempts", g.maxAttempts)
}

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrOverloaded):
		return "overloaded"
	default:
		return "failed"
	}
}

// failure maps a non-retryable client error onto the gateway's error kinds.
func failure(err error) error {
	switch {
	case isClientError(err):
		return apperr.InvalidArgument("classifier rejected the request: %v", err)
	case errors.Is(err, apperr.ErrInvalidResponse):
		return apperr.InvalidResponse("%v", err)
	default:
		return fmt.Errorf("%w: classifier call failed: %v", apperr.ErrInternal, err)
	}
}
