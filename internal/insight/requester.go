package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	applog "fintrack/internal/log"
)

// Options bound the requester's use of the provider.
type Options struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	RatePerMinute int
}

// Result is what the presenter renders.
type Result struct {
	Text     string
	Fallback bool
	Cached   bool
}

// Requester wraps a Generator with a timeout, memoization and a quota.
// It never returns an error to the caller.
type Requester struct {
	gen     Generator
	timeout time.Duration
	cache   *gocache.Cache
	limiter *rate.Limiter
}

func NewRequester(gen Generator, opts Options) *Requester {
	if gen == nil {
		gen = Disabled{}
	}
	r := &Requester{gen: gen, timeout: opts.Timeout}
	if r.timeout <= 0 {
		r.timeout = 20 * time.Second
	}
	if opts.CacheTTL > 0 {
		r.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	if opts.RatePerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	return r
}

// Provider names the underlying generator.
func (r *Requester) Provider() string { return r.gen.Name() }

// RequestInsight returns model text, or a fallback message explaining why
// there is none.
func (r *Requester) RequestInsight(ctx context.Context, prompt string) string {
	return r.Request(ctx, prompt).Text
}

// Request is RequestInsight with the outcome flags kept.
func (r *Requester) Request(ctx context.Context, prompt string) Result {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentInsight)
	key := cacheKey(prompt)

	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			logger.DebugContext(ctx, "Insight served from cache", applog.FieldProvider, r.gen.Name())
			return Result{Text: v.(string), Cached: true}
		}
	}

	if r.limiter != nil && !r.limiter.Allow() {
		logger.WarnContext(ctx, "Insight quota exhausted", applog.FieldProvider, r.gen.Name())
		return fallback(ErrQuotaExceeded)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := r.gen.Generate(callCtx, prompt)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		if callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		logger.WarnContext(ctx, "Insight request failed",
			applog.FieldProvider, r.gen.Name(),
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldError, err)
		return fallback(err)
	}

	logger.InfoContext(ctx, "Insight generated",
		applog.FieldProvider, r.gen.Name(),
		applog.FieldDuration, time.Since(start).Milliseconds())
	if r.cache != nil {
		r.cache.SetDefault(key, text)
	}
	return Result{Text: text}
}

// Close releases the generator's client when it holds one.
func (r *Requester) Close() error {
	if c, ok := r.gen.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func fallback(err error) Result {
	return Result{
		Text:     fmt.Sprintf("Insight is not available right now (%s). Your figures above are up to date.", reason(err)),
		Fallback: true,
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrDisabled):
		return "no insight provider is configured"
	case errors.Is(err, context.DeadlineExceeded):
		return "the model took too long to answer"
	case errors.Is(err, ErrQuotaExceeded):
		return "request limit reached, try again in a minute"
	case errors.Is(err, ErrEmptyResponse):
		return "the model returned no text"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	default:
		return "the model could not be reached"
	}
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
