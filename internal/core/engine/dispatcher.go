package engine

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/source"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
)

// DefaultHandlerTimeout bounds a single data source fetch.
const DefaultHandlerTimeout = 10 * time.Second

// Dispatcher routes structured requests to their data source.
type Dispatcher struct {
	Registry       *Registry
	HandlerTimeout time.Duration
	Clock          func() time.Time
	Logger         *logging.Logger

	flights singleflight.Group
}

type fetchResult struct {
	record      *core.Record
	retrievedAt time.Time
}

// Dispatch normalizes req, resolves its source and fetches the record.
// Every failure is returned as a *core.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req core.StructuredRequest) (*core.StructuredResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	resp, err := d.dispatch(ctx, req)

	outcome := "success"
	if err != nil {
		outcome = string(core.KindOf(err))
	}
	metrics.RecordDispatch(string(req.Kind), outcome, time.Since(started))

	if d.Logger != nil {
		fields := []zap.Field{
			zap.String("kind", string(req.Kind)),
			zap.String("identifier", req.Identifier),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(started)),
		}
		if err != nil {
			d.Logger.Warn("Dispatch failed", append(fields, zap.Error(err))...)
		} else {
			d.Logger.Debug("Dispatch completed", append(fields, zap.Bool("from_cache", resp.Provenance.FromCache))...)
		}
	}

	return resp, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req core.StructuredRequest) (*core.StructuredResponse, error) {
	normalized := core.NormalizeRequest(req)

	src, err := d.Registry.Resolve(normalized.Kind)
	if err != nil {
		return nil, err
	}

	if normalized.Identifier == "" {
		return nil, core.Errorf(core.ErrIdentifierNotFound, "an identifier is required for %s", normalized.Kind)
	}

	key := string(normalized.Kind) + "/" + source.CacheKey(normalized.Identifier, normalized.Parameters)
	value, err, _ := d.flights.Do(key, func() (any, error) {
		return d.fetch(ctx, src, normalized)
	})
	if err != nil {
		return nil, err
	}
	result := value.(*fetchResult)

	return &core.StructuredResponse{
		Kind:        normalized.Kind,
		Identifier:  normalized.Identifier,
		Payload:     core.ClonePayload(result.record.Payload),
		Source:      result.record.Source,
		Summary:     result.record.Summary,
		RetrievedAt: result.retrievedAt,
		Provenance: core.Provenance{
			RequestID: uuid.NewString(),
			Source:    src.Describe(),
			FromCache: result.record.FromCache,
			ProofHash: result.record.ProofHash,
		},
	}, nil
}

// fetch runs the source call detached from caller cancellation and bounded by
// the handler timeout.
func (d *Dispatcher) fetch(ctx context.Context, src source.Source, req core.StructuredRequest) (*fetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.handlerTimeout())
	defer cancel()

	record, err := src.Fetch(fetchCtx, req.Identifier, req.Parameters)
	retrievedAt := d.now()

	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return nil, &core.Error{
				Kind:    core.ErrUpstreamUnavailable,
				Message: string(req.Kind) + " source timed out after " + d.handlerTimeout().String(),
				Cause:   err,
			}
		}
		if _, ok := core.AsError(err); ok {
			return nil, err
		}
		return nil, core.UpstreamError(err, string(req.Kind)+" source")
	}
	if record == nil {
		return nil, core.Errorf(core.ErrUpstreamUnavailable, "%s source returned no data", req.Kind)
	}
	if record.Source == "" {
		record.Source = src.Describe()
	}

	return &fetchResult{record: record, retrievedAt: retrievedAt}, nil
}

func (d *Dispatcher) handlerTimeout() time.Duration {
	if d.HandlerTimeout <= 0 {
		return DefaultHandlerTimeout
	}
	return d.HandlerTimeout
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}
