package match

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spigell/donation-matcher/internal/ai"
	"github.com/spigell/donation-matcher/internal/logger"
	"github.com/spigell/donation-matcher/internal/utils"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

var tracer = otel.Tracer("github.com/spigell/donation-matcher/internal/match")

// ResultCache stores validated model answers keyed by prompt digest.
type ResultCache interface {
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	Set(ctx context.Context, key string, raw map[string]any) error
}

// Publisher announces match decisions to other services.
type Publisher interface {
	Publish(ctx context.Context, decision Decision) error
}

type Config struct {
	// Timeout bounds a single reasoning engine call.
	Timeout time.Duration
	// VerifyRecipient rejects answers naming a recipient that was not offered.
	VerifyRecipient bool
	MaxLogLength    int
}

type Deps struct {
	Reasoner  ai.Reasoner
	Prompt    *PromptBuilder
	Cache     ResultCache
	Publisher Publisher
	Logger    *zap.Logger
}

// Service is the match orchestrator. It holds no per-request state.
type Service struct {
	reasoner        ai.Reasoner
	prompt          *PromptBuilder
	cache           ResultCache
	publisher       Publisher
	logger          *zap.Logger
	timeout         time.Duration
	verifyRecipient bool
	maxLogLen       int
	now             func() time.Time
}

func NewService(cfg Config, deps Deps) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	prompt := deps.Prompt
	if prompt == nil {
		prompt = NewPromptBuilder("")
	}

	return &Service{
		reasoner:        deps.Reasoner,
		prompt:          prompt,
		cache:           deps.Cache,
		publisher:       deps.Publisher,
		logger:          logger.WithFields(deps.Logger),
		timeout:         timeout,
		verifyRecipient: cfg.VerifyRecipient,
		maxLogLen:       maxLogLen,
		now:             time.Now,
	}
}

// GetBest validates the raw payload and selects the best recipient for it.
// Every failure is a *Error; render it with ErrorBody.
func (s *Service) GetBest(ctx context.Context, payload []byte) (*BestMatch, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "match.GetBest")
	defer span.End()

	best, err := s.getBest(ctx, payload)

	result := resultLabel(err)
	matchRequests.WithLabelValues(result).Inc()
	matchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}

	return best, err
}

func (s *Service) getBest(ctx context.Context, payload []byte) (*BestMatch, error) {
	req, err := ParseRequest(payload)
	if err != nil {
		s.logger.Info("rejecting match request", zap.Error(err))
		return nil, err
	}

	return s.Match(ctx, req)
}

// RenderPrompt returns the prompt that would be sent for req.
func (s *Service) RenderPrompt(req *MatchRequest) string {
	return s.prompt.Render(req)
}

// Match runs the pipeline for an already validated request.
func (s *Service) Match(ctx context.Context, req *MatchRequest) (*BestMatch, error) {
	if s.reasoner == nil {
		return nil, &Error{Kind: KindInternal, Err: fmt.Errorf("reasoning engine is not configured")}
	}

	matchID := uuid.NewString()
	log := s.logger.With(logger.MatchFields(matchID, req.Donor.ID)...).
		With(zap.Int("candidates", len(req.EligibleRecipients)))

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("match.id", matchID),
		attribute.String("match.donor_id", req.Donor.ID),
		attribute.Int("match.candidates", len(req.EligibleRecipients)),
	)

	prompt := s.prompt.Render(req)
	key := cacheKey(s.reasoner.Model(), prompt)

	best, cached := s.lookup(ctx, log, key)
	if !cached {
		var err error
		best, err = s.reason(ctx, log, prompt)
		if err != nil {
			log.Warn("match failed", zap.String("kind", string(KindOf(err))), zap.Error(err))
			return nil, err
		}
	}

	if err := s.checkRecipient(log, req, best); err != nil {
		return nil, err
	}

	if !cached {
		s.store(ctx, log, key, best)
	}

	log.Info("recipient selected",
		zap.String(logger.FieldRecipientID, best.Result.RecipientID),
		zap.String("recipient_name", best.Result.RecipientName),
		zap.Bool("cached", cached),
	)

	s.publish(ctx, log, Decision{
		ID:            matchID,
		DonorID:       req.Donor.ID,
		RecipientID:   best.Result.RecipientID,
		RecipientName: best.Result.RecipientName,
		Model:         s.reasoner.Model(),
		Cached:        cached,
		DecidedAt:     s.now().UTC(),
	})

	return best, nil
}

func (s *Service) reason(ctx context.Context, log *zap.Logger, prompt string) (*BestMatch, error) {
	ctx, span := tracer.Start(ctx, "match.Reason")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Debug("reasoning engine request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	start := time.Now()
	raw, err := s.reasoner.GenerateContent(ctx, prompt)
	reasoningDuration.WithLabelValues(s.reasoner.Model()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning engine failure")
		return nil, &Error{Kind: KindReasoningEngine, Err: err}
	}

	log.Debug("reasoning engine response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return ParseResponse(raw)
}

func (s *Service) checkRecipient(log *zap.Logger, req *MatchRequest, best *BestMatch) error {
	recipient := req.FindRecipient(best.Result.RecipientID)
	if recipient == nil {
		if !s.verifyRecipient {
			log.Warn("model selected an unknown recipient",
				zap.String(logger.FieldRecipientID, best.Result.RecipientID),
			)
			return nil
		}
		return &Error{Kind: KindUnknownRecipient, Problems: []string{fmt.Sprintf(
			"recipient_id %q is not one of [%s]", best.Result.RecipientID, strings.Join(req.RecipientIDs(), ", "),
		)}}
	}

	if recipient.Name != best.Result.RecipientName {
		log.Debug("recipient name differs from request",
			zap.String(logger.FieldRecipientID, recipient.ID),
			zap.String("expected", recipient.Name),
			zap.String("got", best.Result.RecipientName),
		)
	}

	return nil
}

func (s *Service) lookup(ctx context.Context, log *zap.Logger, key string) (*BestMatch, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		log.Warn("result cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var result BestMatchResult
	if problems := decodeStrict(resultFields(raw), &result); len(problems) > 0 {
		cacheLookups.WithLabelValues("invalid").Inc()
		log.Warn("ignoring invalid cached result", zap.Strings("problems", problems))
		return nil, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	return &BestMatch{Result: result, Raw: raw}, true
}

func (s *Service) store(ctx context.Context, log *zap.Logger, key string, best *BestMatch) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, best.Raw); err != nil {
		log.Warn("storing result in cache failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, decision Decision) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, decision); err != nil {
		log.Warn("publishing match decision failed", zap.Error(err))
	}
}

func cacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\n" + prompt))
	return hex.EncodeToString(sum[:])
}
