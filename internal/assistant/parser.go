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
	parserSystem = "You are a helpful shift scheduling assistant. Always respond with valid JSON only."

	MsgNeedDetails   = "Could you provide more details? I need your name, role, date, and time."
	MsgParserTrouble = "I had trouble understanding that. Please use the manual form below."
)

// ParseResult holds either a reply for the user or post fields ready to be
// submitted.
type ParseResult struct {
	Reply string           `json:"reply,omitempty"`
	Post  *shift.PostInput `json:"shiftData,omitempty"`
}

// Parser turns a free-form message into post fields without creating anything.
type Parser struct {
	stage
}

func NewParser(deps Deps) *Parser {
	return &Parser{stage: newStage(StageParser, deps)}
}

type parseResponse struct {
	Reply     string `mapstructure:"reply"`
	ShiftData *struct {
		User  string `mapstructure:"user"`
		Role  string `mapstructure:"role"`
		Date  string `mapstructure:"date"`
		Shift string `mapstructure:"shift"`
		Notes string `mapstructure:"notes"`
	} `mapstructure:"shiftData"`
}

func (p *Parser) Parse(ctx context.Context, message string, now time.Time) ParseResult {
	date, weekday := today(now)
	if now.IsZero() {
		now = time.Now()
	}

	prompt := render(parseTemplate, map[string]string{
		"TODAY":   date,
		"WEEKDAY": weekday,
		"MESSAGE": strings.TrimSpace(message),
	})

	raw, err := p.reasoner.Complete(ctx, []ai.Turn{ai.System(parserSystem), ai.User(prompt)}, ai.Options{
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		p.fallback(causeError, zap.Error(err))
		return ParseResult{Reply: MsgParserTrouble}
	}

	resp, err := ai.Decode[parseResponse](raw)
	if err != nil {
		p.fallback(causeUnparsable, zap.Error(err))
		return ParseResult{Reply: MsgNeedDetails}
	}

	if resp.ShiftData == nil {
		if reply := strings.TrimSpace(resp.Reply); reply != "" {
			return ParseResult{Reply: reply}
		}
		p.fallback(causeInvalid, zap.String("reason", "neither reply nor shiftData"))
		return ParseResult{Reply: MsgNeedDetails}
	}

	data := resp.ShiftData
	user := strings.TrimSpace(data.User)
	role := strings.TrimSpace(data.Role)
	if user == "" || role == "" {
		p.fallback(causeInvalid, zap.String("reason", "missing user or role"))
		return ParseResult{Reply: MsgNeedDetails}
	}

	resolved, err := shift.ResolveDate(data.Date, now)
	if err != nil {
		p.fallback(causeInvalid, zap.String("date", data.Date), zap.Error(err))
		return ParseResult{Reply: MsgNeedDetails}
	}
	timeRange, err := shift.NormalizeShift(data.Shift)
	if err != nil {
		p.fallback(causeInvalid, zap.String("shift", data.Shift), zap.Error(err))
		return ParseResult{Reply: MsgNeedDetails}
	}

	return ParseResult{Post: &shift.PostInput{
		User:  user,
		Role:  role,
		Date:  resolved,
		Shift: timeRange,
		Notes: strings.TrimSpace(data.Notes),
	}}
}
