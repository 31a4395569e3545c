package assistant

import (
	"embed"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/logger"
	"github.com/spigell/shift-swap/internal/metrics"
	"github.com/spigell/shift-swap/internal/shift"
)

// Stage names used for logs and metrics.
const (
	StageClassifier = "classifier"
	StageExtractor  = "extractor"
	StageParser     = "parser"
)

// Fallback causes.
const (
	causeError        = "error"
	causeUnparsable   = "unparsable"
	causeUnrecognized = "unrecognized"
	causeInvalid      = "invalid"
)

//go:embed prompts/*.md
var prompts embed.FS

var (
	intentTemplate  = mustPrompt("intent.md")
	extractTemplate = mustPrompt("extract.md")
	parseTemplate   = mustPrompt("parse.md")
)

// Deps aggregates what every stage needs.
type Deps struct {
	Reasoner     ai.Reasoner
	Logger       *zap.Logger
	Metrics      metrics.Recorder
	MaxLogLength int
}

// stage is the shared core of the classifier, extractor and parser.
type stage struct {
	name     string
	reasoner ai.Reasoner
	logger   *zap.Logger
	metrics  metrics.Recorder
}

func newStage(name string, deps Deps) stage {
	log := logger.ForStage(deps.Logger, name)

	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	r := deps.Reasoner
	if r == nil {
		r = ai.Unavailable{}
	}

	return stage{
		name:     name,
		reasoner: ai.Observe(r, name, rec, log, deps.MaxLogLength),
		logger:   log,
		metrics:  rec,
	}
}

func (s stage) fallback(cause string, fields ...zap.Field) {
	s.logger.Warn("falling back", append([]zap.Field{zap.String("cause", cause)}, fields...)...)
	s.metrics.RecordFallback(s.name, cause)
}

func mustPrompt(name string) string {
	data, err := prompts.ReadFile("prompts/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// render replaces {{KEY}} placeholders in tmpl.
func render(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func today(now time.Time) (string, string) {
	if now.IsZero() {
		now = time.Now()
	}
	return now.Format(shift.DateLayout), now.Weekday().String()
}
