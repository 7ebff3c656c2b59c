package detection

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/menta2k/trackmate/internal/metrics"
	"github.com/menta2k/trackmate/pkg/classifier"
	"github.com/menta2k/trackmate/pkg/client"
	"github.com/menta2k/trackmate/pkg/processing"
	"github.com/menta2k/trackmate/pkg/resultcache"
	"github.com/menta2k/trackmate/pkg/types"
)

// DefaultPrompt asks the model for a single category number followed by a
// short explanation
const DefaultPrompt = "Look at this image carefully. What is the person doing RIGHT NOW?\n\n" +
	"Choose ONE number (1-7):\n\n" +
	"1 = Using phone (person is HOLDING phone in their hand)\n" +
	"2 = Working ( at desk with NO phone in hand)\n" +
	"3 = Phone + Work (doing BOTH: person is ACTIVELY HOLDING and USING phone in their hand AND working at computer/desk)\n" +
	"4 = Sleeping\n" +
	"5 = Eating\n" +
	"6 = Drinking  \n" +
	"7 = Other\n\n\n" +
	"Answer: First write the number (1-7), then explain what you see."

// EmptyResponseDescription is stored when the model answers with blank text
const EmptyResponseDescription = "Default: Working (empty AI response)"

// RuleEmptyResponse names the fallback used for blank model output
const RuleEmptyResponse = "empty-response"

// Detector runs one frame through cache, preparation, inference and
// classification
type Detector struct {
	client     client.VisionClient
	classifier *classifier.Classifier
	cache      *resultcache.Cache
	processor  *processing.Processor
	categories types.CategoryTable
	prompt     string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Detector
type Option func(*Detector)

// WithPrompt overrides DefaultPrompt
func WithPrompt(prompt string) Option {
	return func(d *Detector) { d.prompt = prompt }
}

// WithCache enables result memoization
func WithCache(c *resultcache.Cache) Option {
	return func(d *Detector) { d.cache = c }
}

// WithProcessor sets the image preparation step
func WithProcessor(p *processing.Processor) Option {
	return func(d *Detector) { d.processor = p }
}

// WithCategories sets the category display names
func WithCategories(t types.CategoryTable) Option {
	return func(d *Detector) { d.categories = t }
}

// WithClassifier replaces the default rule table
func WithClassifier(c *classifier.Classifier) Option {
	return func(d *Detector) { d.classifier = c }
}

// WithMetrics records pipeline metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithClock sets the time source for result timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// CacheTTL returns how long results are reused, zero when caching is off
func (d *Detector) CacheTTL() time.Duration {
	return d.cache.TTL()
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, opts ...Option) *Detector {
	d := &Detector{
		client:     c,
		classifier: classifier.New(),
		cache:      resultcache.New(0),
		processor:  processing.NewProcessor(320, 80),
		categories: types.DefaultCategoryTable(),
		prompt:     DefaultPrompt,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("module", "detection")
	return d
}

// Backend returns the name of the inference backend
func (d *Detector) Backend() string {
	return d.client.Name()
}

// Ping reports whether the inference backend answers
func (d *Detector) Ping(ctx context.Context) error {
	return d.client.Ping(ctx)
}

// Detect classifies one decoded image. Identical bytes seen within the cache
// TTL return the earlier result with Cached set. Failures are returned as
// *client.InferenceError and are never cached.
func (d *Detector) Detect(ctx context.Context, image []byte) (*types.Result, error) {
	if len(image) == 0 {
		return nil, processing.ErrEmptyImage
	}

	key := resultcache.Key(image)
	if d.cache.Enabled() {
		if cached, ok := d.cache.Get(key); ok {
			d.metrics.IncrementCacheHits()
			cached.Cached = true
			d.logger.Debug("cache hit", "category", int(cached.Category), "method", cached.Method, "entries", d.cache.Len())
			return &cached, nil
		}
		d.metrics.IncrementCacheMisses()
	}

	prepared := d.processor.Prepare(image)

	start := time.Now()
	text, err := d.client.Generate(ctx, d.prompt, prepared)
	elapsed := time.Since(start)
	d.metrics.ObserveInferenceDuration(d.client.Name(), elapsed.Seconds())
	if err != nil {
		kind := client.KindOf(err)
		if kind == "" {
			kind = client.KindUnreachable
			err = client.Unreachable(d.client.Name(), err)
		}
		d.metrics.RecordInferenceFailure(string(kind))
		d.logger.Warn("inference failed", "backend", d.client.Name(), "kind", string(kind), "error", err, "duration", elapsed)
		return nil, err
	}

	result := d.resolve(text)
	d.logger.Info("frame classified",
		"category", int(result.Category),
		"activity", result.Activity,
		"rule", result.Rule,
		"raw_response", text,
		"duration", elapsed)
	d.metrics.RecordClassification(strconv.Itoa(int(result.Category)), result.Method)

	d.cache.Set(key, *result)
	return result, nil
}

func (d *Detector) resolve(text string) *types.Result {
	result := &types.Result{
		RawResponse: text,
		Confidence:  types.DefaultConfidence,
		Method:      d.client.Name(),
		Timestamp:   d.now(),
	}

	if strings.TrimSpace(text) == "" {
		result.Category = types.CategoryWorking
		result.Rule = RuleEmptyResponse
		result.Description = EmptyResponseDescription
	} else {
		decision := d.classifier.Classify(text)
		result.Category = decision.Category
		result.Rule = decision.Rule
		result.Description = text
	}
	result.Activity = d.categories.Name(result.Category)
	return result
}

// FailureActivity returns the activity label reported for a failed classification
func FailureActivity(err error) string {
	var ie *client.InferenceError
	if !errors.As(err, &ie) {
		return "Connection Error"
	}
	switch ie.Kind {
	case client.KindBadStatus:
		return "API Error"
	case client.KindMalformed:
		return "No Response"
	default:
		return "Connection Error"
	}
}
