// Package scoring filters extraction candidates by embedding similarity
// against curated golden examples, with cheap syntactic rejection first and
// a lexical fallback when the embedding provider is down.
package scoring

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"go.uber.org/zap"
)

// Result is the outcome of scoring one candidate.
type Result struct {
	// Score is in [0,1]: golden-bank similarity, or the lexical fallback
	// estimate when the provider is unavailable.
	Score float64
	// Passed reports whether the candidate cleared its type threshold.
	Passed bool
	// Reasons lists rejection reasons; empty on acceptance.
	Reasons []string
}

// Scorer scores extraction candidates. Construct with NewScorer.
type Scorer struct {
	provider   embeddings.Provider
	thresholds map[string]float64
	minLengths map[string]int
	logger     *zap.Logger
}

// NewScorer creates a scorer. Nil thresholds or minLengths select the
// reference defaults.
func NewScorer(provider embeddings.Provider, cfg config.ScoringConfig, logger *zap.Logger) *Scorer {
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = config.DefaultThresholds()
	}
	minLengths := cfg.MinLengths
	if minLengths == nil {
		minLengths = config.DefaultMinLengths()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		provider:   provider,
		thresholds: thresholds,
		minLengths: minLengths,
		logger:     logger,
	}
}

// Score evaluates one candidate text against its type's golden bank.
//
// Cheap syntactic checks run first and spend no embedding call. Embedding
// failures degrade to the lexical fallback rather than failing the pass.
func (s *Scorer) Score(ctx context.Context, text string, typ knowledge.Type) Result {
	trimmed := strings.TrimSpace(text)

	if reason := rejectReason(trimmed, s.minLengths[string(typ)]); reason != "" {
		return Result{Score: 0, Passed: false, Reasons: []string{reason}}
	}

	threshold := s.thresholds[string(typ)]

	similarity, err := s.goldenSimilarity(ctx, trimmed, typ)
	if err != nil {
		s.logger.Warn("embedding unavailable, using lexical fallback",
			zap.String("type", string(typ)),
			zap.Error(err))
		similarity = fallbackScore(trimmed, typ)
	}

	if similarity < threshold {
		return Result{Score: similarity, Passed: false, Reasons: []string{"below similarity threshold"}}
	}
	return Result{Score: similarity, Passed: true}
}

// goldenSimilarity embeds the candidate and returns the maximum cosine
// similarity against the cached golden bank for its type.
func (s *Scorer) goldenSimilarity(ctx context.Context, text string, typ knowledge.Type) (float64, error) {
	vecs, err := bank.vectors(ctx, s.provider)
	if err != nil {
		return 0, err
	}

	candidate, err := s.provider.EmbedQuery(ctx, text)
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, golden := range vecs[typ] {
		if sim := cosineSimilarity(candidate, golden); sim > best {
			best = sim
		}
	}
	return best, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var (
	subjectPronounRe = regexp.MustCompile(`(?i)\b(?:we|i|our|the team)\b`)
	actionVerbRe     = regexp.MustCompile(`(?i)\b(?:use|add|fix|move|create|update|remove|refactor|implement|migrate|store|return|handle|write)\b`)
	connectiveRe     = regexp.MustCompile(`(?i)\b(?:because|since|so that|in order to|due to)\b`)

	typeKeywordRes = map[knowledge.Type]*regexp.Regexp{
		knowledge.TypeDecision: regexp.MustCompile(`(?i)\b(?:decided|chose|chosen|selected|going with|settled on|opted)\b`),
		knowledge.TypePattern:  regexp.MustCompile(`(?i)\b(?:pattern|convention|always|every|standard)\b`),
		knowledge.TypeTask:     regexp.MustCompile(`(?i)\b(?:todo|need to|should|must|remaining)\b`),
		knowledge.TypeInsight:  regexp.MustCompile(`(?i)\b(?:turns out|discovered|realized|learned|root cause|interestingly|surprisingly)\b`),
	}
)

// fallbackScore estimates quality lexically when no embeddings are
// available: a 0.5 base plus point bonuses for completeness signals.
func fallbackScore(text string, typ knowledge.Type) float64 {
	score := 0.5
	if len(text) >= 50 {
		score += 0.1
	}
	if subjectPronounRe.MatchString(text) {
		score += 0.05
	}
	if actionVerbRe.MatchString(text) {
		score += 0.1
	}
	if connectiveRe.MatchString(text) {
		score += 0.1
	}
	if re, ok := typeKeywordRes[typ]; ok && re.MatchString(text) {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
