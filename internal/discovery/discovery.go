// Package discovery looks up a random fungus in an online encyclopedia and
// keeps retrying until a candidate with both a description and an image turns
// up or the attempt budget runs out.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"mycelium/internal/metrics"
	"mycelium/pkg/domain"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	// ErrDiscoveryExhausted marks a run that used its whole attempt budget.
	// Discover never returns it; it tags log entries.
	ErrDiscoveryExhausted = errors.New("discovery exhausted")
	// ErrTranslationUnavailable is returned by translators that cannot serve a request.
	ErrTranslationUnavailable = errors.New("translation unavailable")

	errRejected = errors.New("candidate rejected")
)

// Summary is the encyclopedia page data discovery needs.
type Summary struct {
	Title    string
	Extract  string
	ImageURL string
	PageURL  string
}

// KnowledgeSource lists category members and fetches page summaries.
type KnowledgeSource interface {
	CategoryMembers(ctx context.Context, lang, category string, limit int) ([]string, error)
	Summary(ctx context.Context, lang, title string) (Summary, error)
}

// Translator renders text in the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Options selects what is searched and how attempts are paced.
type Options struct {
	Categories     map[string]string
	Languages      []string
	TargetLanguage string
	Limit          int
	RetryDelay     time.Duration
}

// DefaultOptions searches the English fungi category and translates into Japanese.
func DefaultOptions() Options {
	return Options{
		Categories:     map[string]string{"en": "Category:Fungi", "ja": "Category:菌類"},
		Languages:      []string{"en"},
		TargetLanguage: "ja",
		Limit:          100,
	}
}

// Service runs discovery lookups. It is safe for concurrent use.
type Service struct {
	source     KnowledgeSource
	translator Translator
	opts       Options
	logger     *zap.Logger
	metrics    *metrics.Metrics

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records attempts and results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRand makes candidate selection deterministic.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

// New builds a Service. translator may be nil, which disables enrichment.
func New(source KnowledgeSource, translator Translator, opts Options, options ...Option) *Service {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	s := &Service{source: source, translator: translator, opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(s)
	}
	return s
}

// Discover makes at most maxAttempts attempts and returns the first acceptable
// organism. It returns nil, nil when every attempt failed and nil, ctx.Err()
// when ctx ends first.
func (s *Service) Discover(ctx context.Context, maxAttempts int) (*domain.DiscoveredOrganism, error) {
	if maxAttempts <= 0 {
		return nil, nil
	}
	var (
		attempt int
		found   *domain.DiscoveredOrganism
	)
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		lang := s.opts.Languages[attempt%len(s.opts.Languages)]
		attempt++
		org, err := s.try(ctx, lang)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			result := "error"
			if errors.Is(err, errRejected) {
				result = "rejected"
			}
			s.metrics.ObserveAttempt(result)
			s.logger.Debug("discovery attempt failed",
				zap.Int("attempt", attempt), zap.String("lang", lang), zap.Error(err))
			return err
		}
		s.metrics.ObserveAttempt("accepted")
		found = org
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), uint64(maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	switch {
	case found != nil:
		s.metrics.ObserveDiscovery(metrics.DiscoveryFound)
		s.logger.Info("organism discovered",
			zap.String("title", found.Name), zap.String("lang", found.Language), zap.Int("attempt", attempt))
		return found, nil
	case ctx.Err() != nil:
		s.metrics.ObserveDiscovery(metrics.DiscoveryCancelled)
		return nil, ctx.Err()
	default:
		s.metrics.ObserveDiscovery(metrics.DiscoveryExhausted)
		s.logger.Info("no organism found",
			zap.Int("attempts", attempt), zap.NamedError("last", err), zap.Error(ErrDiscoveryExhausted))
		return nil, nil
	}
}

func (s *Service) try(ctx context.Context, lang string) (*domain.DiscoveredOrganism, error) {
	category := s.opts.Categories[lang]
	if category == "" {
		return nil, fmt.Errorf("no category configured for %q", lang)
	}
	titles, err := s.source.CategoryMembers(ctx, lang, category, s.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: %s has no members", errRejected, category)
	}
	title := titles[s.intn(len(titles))]
	sum, err := s.source.Summary(ctx, lang, title)
	if err != nil {
		return nil, fmt.Errorf("summary %q: %w", title, err)
	}
	desc := strings.TrimSpace(sum.Extract)
	img := strings.TrimSpace(sum.ImageURL)
	if desc == "" || img == "" {
		return nil, fmt.Errorf("%w: %q lacks description or image", errRejected, title)
	}
	name := strings.TrimSpace(sum.Title)
	if name == "" {
		name = title
	}
	org := &domain.DiscoveredOrganism{
		Name:        name,
		Description: desc,
		ImageURL:    img,
		Language:    lang,
		SourceURL:   sum.PageURL,
	}
	org.TranslatedDescription = s.translate(ctx, desc, lang)
	return org, nil
}

func (s *Service) translate(ctx context.Context, text, from string) *string {
	target := s.opts.TargetLanguage
	if s.translator == nil || target == "" || strings.EqualFold(target, from) {
		return nil
	}
	out, err := s.translator.Translate(ctx, text, target)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty translation")
	}
	if err != nil {
		s.metrics.ObserveTranslationError()
		s.logger.Warn("translation skipped",
			zap.String("target", target), zap.Error(fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)))
		return nil
	}
	return &out
}

func (s *Service) intn(n int) int {
	if s.rnd == nil {
		return rand.IntN(n)
	}
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.IntN(n)
}
