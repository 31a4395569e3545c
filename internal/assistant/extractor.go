package assistant

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/ai"
	"github.com/spigell/shift-swap/internal/shift"
)

const (
	extractorSystem = "You are a data extraction assistant. Always respond with valid JSON only."
	// MsgNeedDateTime is the generic clarification when extraction fails.
	MsgNeedDateTime = "Could you provide the specific date and time?"
	myShift         = "my shift"
)

// ExtractRequest is the input of slot extraction.
type ExtractRequest struct {
	Text   string
	Intent shift.Intent
	User   string
	Role   string
	// Schedule lists the user's existing shifts, one per line. Optional.
	Schedule string
	// Now anchors relative dates. Zero means the current time.
	Now time.Time
}

// Extraction is either a complete slot or a clarification request.
type Extraction struct {
	Slot    *shift.Slot
	Message string
}

func (e Extraction) NeedsInfo() bool { return e.Slot == nil }

func needsInfo(message string) Extraction {
	if strings.TrimSpace(message) == "" {
		message = MsgNeedDateTime
	}
	return Extraction{Message: strings.TrimSpace(message)}
}

type Extractor struct {
	stage
}

func NewExtractor(deps Deps) *Extractor {
	return &Extractor{stage: newStage(StageExtractor, deps)}
}

type slotResponse struct {
	Date  string `mapstructure:"date"`
	Shift string `mapstructure:"shift"`
	Role  string `mapstructure:"role"`
	Notes string `mapstructure:"notes"`
}

type extractResponse struct {
	NeedsMoreInfo bool          `mapstructure:"needsMoreInfo"`
	Message       string        `mapstructure:"message"`
	ShiftData     *slotResponse `mapstructure:"shiftData"`
}

// Extract asks the reasoner for the slot and validates what comes back. Date
// and time are never guessed: anything that does not resolve is a
// clarification request.
func (e *Extractor) Extract(ctx context.Context, req ExtractRequest) Extraction {
	date, weekday := today(req.Now)
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	prompt := render(extractTemplate, map[string]string{
		"TODAY":    date,
		"WEEKDAY":  weekday,
		"USER":     req.User,
		"ROLE":     req.Role,
		"MESSAGE":  strings.TrimSpace(req.Text),
		"INTENT":   describeIntent(req.Intent),
		"SCHEDULE": scheduleBlock(req.Schedule),
	})

	raw, err := e.reasoner.Complete(ctx, []ai.Turn{ai.System(extractorSystem), ai.User(prompt)}, ai.Options{
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		e.fallback(causeError, zap.Error(err))
		return needsInfo("")
	}

	resp, err := ai.Decode[extractResponse](raw)
	if err != nil {
		e.fallback(causeUnparsable, zap.Error(err))
		return needsInfo("")
	}

	if resp.NeedsMoreInfo {
		e.logger.Info("more information requested", zap.String("message", resp.Message))
		return needsInfo(resp.Message)
	}
	if resp.ShiftData == nil {
		e.fallback(causeInvalid, zap.String("reason", "missing shiftData"))
		return needsInfo("")
	}

	slot, ok := e.validate(*resp.ShiftData, req, now)
	if !ok {
		return needsInfo("")
	}

	e.logger.Info("slot extracted",
		zap.String("date", slot.Date),
		zap.String("shift", slot.Shift),
		zap.String("role", slot.Role),
	)
	return Extraction{Slot: &slot}
}

func (e *Extractor) validate(raw slotResponse, req ExtractRequest, now time.Time) (shift.Slot, bool) {
	date, err := shift.ResolveDate(raw.Date, now)
	if err != nil {
		e.fallback(causeInvalid, zap.String("date", raw.Date), zap.Error(err))
		return shift.Slot{}, false
	}

	timeRange := ""
	if req.Schedule != "" && strings.Contains(strings.ToLower(req.Text), myShift) {
		if recorded, ok := shift.ScheduleRange(req.Schedule, date); ok {
			if recorded != strings.TrimSpace(raw.Shift) {
				e.logger.Info("using recorded shift time", zap.String("extracted", raw.Shift), zap.String("recorded", recorded))
			}
			timeRange = recorded
		}
	}
	if timeRange == "" {
		timeRange, err = shift.NormalizeShift(raw.Shift)
		if err != nil {
			e.fallback(causeInvalid, zap.String("shift", raw.Shift), zap.Error(err))
			return shift.Slot{}, false
		}
	}

	role := strings.TrimSpace(raw.Role)
	if role == "" {
		role = strings.TrimSpace(req.Role)
	}

	return shift.Slot{
		Date:  date,
		Shift: timeRange,
		Role:  role,
		Notes: strings.TrimSpace(raw.Notes),
	}, true
}

func describeIntent(i shift.Intent) string {
	if i == shift.IntentOffering {
		return "offering to cover shifts for others"
	}
	return "looking for someone to cover their shift"
}

func scheduleBlock(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return ""
	}
	return "\n\nUser's Existing Shifts:\n" + schedule +
		"\n\nIMPORTANT: If the user mentions \"my shift\" on a specific date, use the EXACT time from their schedule above!"
}
