// Package reply splits raw model output into display text, an optional
// structured extraction block and an optional routing signal.
package reply

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
	statex "github.com/tanpawarit/Chative-Loan-Origination/agent/state"
)

type Action string

const (
	ActionContinue Action = "CONTINUE"
	ActionAgree    Action = "AGREE"
)

const (
	jsonOpen  = "<JSON>"
	jsonClose = "</JSON>"
)

var (
	routeTag  = regexp.MustCompile(`<ROUTING:([A-Z_]+)>`)
	actionTag = regexp.MustCompile(`<ACTION:([A-Z_]+)>`)
)

// Extraction is the structured payload a negotiating model appends to its
// reply. Nil fields were not mentioned.
type Extraction struct {
	Amount *float64
	Tenure *int
	Action Action
}

func (e *Extraction) Agreed() bool {
	return e != nil && e.Action == ActionAgree
}

type Parsed struct {
	Text       string
	Extraction *Extraction
	Route      statex.Role
}

// block mirrors the wire shape; numbers arrive as floats or null.
type block struct {
	Amount *float64 `json:"amount"`
	Tenure *float64 `json:"tenure"`
	Action string   `json:"action"`
}

var blockParser = schema.NewMessageJSONParser[block](&schema.MessageJSONParseConfig{
	ParseFrom: schema.MessageParseFromContent,
})

// Parse never fails: a missing or malformed block yields a nil Extraction and
// the text before the block is still returned.
func Parse(raw string) Parsed {
	text := raw
	var ext *Extraction

	if idx := strings.Index(text, jsonOpen); idx >= 0 {
		body := text[idx+len(jsonOpen):]
		if end := strings.Index(body, jsonClose); end >= 0 {
			body = body[:end]
		}
		text = text[:idx]
		ext = decodeBlock(body)
	}

	var route statex.Role
	if m := routeTag.FindStringSubmatch(text); m != nil {
		if r := statex.Role(m[1]); r.Valid() {
			route = r
		}
	}
	text = routeTag.ReplaceAllString(text, "")

	if m := actionTag.FindStringSubmatch(text); m != nil {
		if Action(m[1]) == ActionAgree {
			if ext == nil {
				ext = &Extraction{}
			}
			ext.Action = ActionAgree
		}
	}
	text = actionTag.ReplaceAllString(text, "")

	return Parsed{
		Text:       strings.TrimSpace(text),
		Extraction: ext,
		Route:      route,
	}
}

func decodeBlock(body string) *Extraction {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	out, err := blockParser.Parse(context.Background(), schema.AssistantMessage(body, nil))
	if err != nil {
		return nil
	}

	ext := &Extraction{Action: ActionContinue}
	if out.Amount != nil && !math.IsNaN(*out.Amount) && *out.Amount >= 0 {
		ext.Amount = statex.Float(*out.Amount)
	}
	if out.Tenure != nil && *out.Tenure > 0 {
		ext.Tenure = statex.Int(int(math.Round(*out.Tenure)))
	}
	if Action(strings.ToUpper(strings.TrimSpace(out.Action))) == ActionAgree {
		ext.Action = ActionAgree
	}
	return ext
}
