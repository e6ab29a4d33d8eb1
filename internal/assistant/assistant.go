// Package assistant turns free-text commands into structured transaction
// intents through a generative model.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	"github.com/controlboxthe-coder/THE-BOX/internal/log"
)

// ResultKind discriminates the three outcomes of an interpretation. Callers
// handle each explicitly; there is no optional-field sniffing.
type ResultKind int

const (
	ResultParsed ResultKind = iota
	ResultUnrecognized
	ResultTransportFailure
)

// Intent is a fully-resolved transaction the session can apply directly.
type Intent struct {
	Type        core.TransactionType
	Description string
	Amount      core.Money
	Category    string
	Date        core.Date
}

// Result is the outcome of one interpretation.
type Result struct {
	Kind    ResultKind
	Intent  Intent
	Message string
}

// Generator is the model call. The production implementation wraps the
// GenAI SDK; tests substitute a canned one.
type Generator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Bridge interprets transcripts against the user's category list.
type Bridge struct {
	gen     Generator
	model   string
	timeout time.Duration
	logger  *log.Logger
	today   func() core.Date
}

func NewBridge(gen Generator, model string, timeout time.Duration, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Bridge{
		gen:     gen,
		model:   model,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentAssistant),
		today:   core.Today,
	}
}

// Interpret asks the model to map the transcript onto a transaction intent.
// The call is bounded by the bridge timeout; when ctx is cancelled first the
// result is discarded by the caller, never applied late.
func (b *Bridge) Interpret(ctx context.Context, transcript string, categories []string) Result {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Result{Kind: ResultUnrecognized, Message: "empty command"}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	raw, err := b.gen.GenerateText(ctx, b.model, b.buildPrompt(transcript, categories))
	if err != nil {
		b.logger.WarnContext(ctx, "Model call failed",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return Result{Kind: ResultTransportFailure, Message: "could not reach the assistant"}
	}

	return b.decodeAction(ctx, raw, categories)
}

func (b *Bridge) buildPrompt(transcript string, categories []string) string {
	var sb strings.Builder
	sb.WriteString("You parse personal finance voice commands in Portuguese or English.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString("- Map the command to a single transaction, or report it as not understood.\n")
	sb.WriteString("- Output STRICT JSON only (no comments, no extra text).\n")
	sb.WriteString("- Output a single JSON object.\n\n")
	sb.WriteString("The object must have these fields:\n")
	sb.WriteString("- \"action\": \"add_tx\" or \"unknown\"\n")
	sb.WriteString("- \"type\": \"income\" or \"expense\"\n")
	sb.WriteString("- \"description\": string\n")
	sb.WriteString("- \"amount\": number (always positive)\n")
	sb.WriteString("- \"category\": string, one of the categories below, or null\n")
	sb.WriteString("- \"date\": string \"YYYY-MM-DD\", or null for today\n\n")
	sb.WriteString("Valid categories: " + strings.Join(categories, ", ") + "\n")
	sb.WriteString("Today is " + b.today().String() + ".\n\n")
	sb.WriteString("Return ONLY valid raw JSON.\n")
	sb.WriteString("Do NOT wrap the response in code fences.\n")
	sb.WriteString("Do NOT use ```json or any Markdown.\n\n")
	sb.WriteString("Command: " + transcript + "\n")
	return sb.String()
}

type modelAction struct {
	Action      string      `json:"action"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

func (b *Bridge) decodeAction(ctx context.Context, raw string, categories []string) Result {
	clean := cleanModelJSON(raw)

	var action modelAction
	if err := json.Unmarshal([]byte(clean), &action); err != nil {
		b.logger.WarnContext(ctx, "Model returned malformed JSON",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return Result{Kind: ResultUnrecognized, Message: "could not understand the command"}
	}

	if action.Action != "add_tx" {
		return Result{Kind: ResultUnrecognized, Message: "could not understand the command"}
	}

	// A parse without amount or description is a failed parse, never a
	// partially-applied transaction.
	if action.Amount == "" || strings.TrimSpace(action.Description) == "" {
		return Result{Kind: ResultUnrecognized, Message: "could not understand the command"}
	}

	cents, err := core.ParseDecimalToCents(action.Amount.String())
	if err != nil {
		return Result{Kind: ResultUnrecognized, Message: fmt.Sprintf("invalid amount %q", action.Amount)}
	}

	txType := core.TransactionType(action.Type)
	if !txType.Valid() {
		txType = core.Expense
	}

	category := strings.TrimSpace(action.Category)
	if category == "" || !containsCategory(categories, category) {
		category = core.FallbackCategory
	}

	date := b.today()
	if action.Date != "" {
		if parsed, err := core.ParseDate(action.Date); err == nil {
			date = parsed
		}
	}

	return Result{
		Kind: ResultParsed,
		Intent: Intent{
			Type:        txType,
			Description: strings.TrimSpace(action.Description),
			Amount:      core.Money{Cents: cents},
			Category:    category,
			Date:        date,
		},
	}
}

// cleanModelJSON strips Markdown fences and surrounding junk the model may
// emit despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}

func containsCategory(categories []string, name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
