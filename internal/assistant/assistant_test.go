package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func newTestBridge(gen Generator) *Bridge {
	b := NewBridge(gen, "test-model", time.Second, nil)
	b.today = func() core.Date { return core.NewDate(2026, 9, 1) }
	return b
}

func testCategories() []string {
	return []string{"Alimentação", "Transporte", "Outros"}
}

func TestInterpretParsed(t *testing.T) {
	b := newTestBridge(&fakeGenerator{
		response: `{"action":"add_tx","type":"expense","description":"mercado","amount":42.50,"category":"Alimentação","date":"2026-08-30"}`,
	})

	res := b.Interpret(context.Background(), "gastei 42,50 no mercado", testCategories())
	if res.Kind != ResultParsed {
		t.Fatalf("kind = %v, want parsed (%s)", res.Kind, res.Message)
	}
	if res.Intent.Amount.Cents != 4250 {
		t.Errorf("amount cents = %d, want 4250", res.Intent.Amount.Cents)
	}
	if res.Intent.Category != "Alimentação" {
		t.Errorf("category = %q", res.Intent.Category)
	}
	if res.Intent.Date.String() != "2026-08-30" {
		t.Errorf("date = %s", res.Intent.Date)
	}
}

func TestInterpretFallbacks(t *testing.T) {
	b := newTestBridge(&fakeGenerator{
		response: `{"action":"add_tx","amount":50,"description":"gas"}`,
	})

	res := b.Interpret(context.Background(), "spent 50 on gas", testCategories())
	if res.Kind != ResultParsed {
		t.Fatalf("kind = %v, want parsed (%s)", res.Kind, res.Message)
	}
	if res.Intent.Category != core.FallbackCategory {
		t.Errorf("category = %q, want fallback %q", res.Intent.Category, core.FallbackCategory)
	}
	if res.Intent.Date.String() != "2026-09-01" {
		t.Errorf("date = %s, want today", res.Intent.Date)
	}
	if res.Intent.Type != core.Expense {
		t.Errorf("type = %q, want expense default", res.Intent.Type)
	}
}

func TestInterpretUnrecognized(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"unknown action", `{"action":"unknown"}`},
		{"missing amount", `{"action":"add_tx","description":"gas"}`},
		{"missing description", `{"action":"add_tx","amount":50}`},
		{"negative amount", `{"action":"add_tx","amount":-5,"description":"gas"}`},
		{"malformed json", `sure! here is the transaction you asked for`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(&fakeGenerator{response: tt.response})
			res := b.Interpret(context.Background(), "anything", testCategories())
			if res.Kind != ResultUnrecognized {
				t.Errorf("kind = %v, want unrecognized", res.Kind)
			}
		})
	}
}

func TestInterpretUnlistedCategoryFallsBack(t *testing.T) {
	b := newTestBridge(&fakeGenerator{
		response: `{"action":"add_tx","amount":10,"description":"x","category":"Iates"}`,
	})

	res := b.Interpret(context.Background(), "anything", testCategories())
	if res.Kind != ResultParsed {
		t.Fatalf("kind = %v, want parsed", res.Kind)
	}
	if res.Intent.Category != core.FallbackCategory {
		t.Errorf("category = %q, want fallback", res.Intent.Category)
	}
}

func TestInterpretTransportFailure(t *testing.T) {
	b := newTestBridge(&fakeGenerator{err: errors.New("connection refused")})

	res := b.Interpret(context.Background(), "anything", testCategories())
	if res.Kind != ResultTransportFailure {
		t.Errorf("kind = %v, want transport failure", res.Kind)
	}
}

func TestInterpretEmptyTranscript(t *testing.T) {
	b := newTestBridge(&fakeGenerator{})

	res := b.Interpret(context.Background(), "   ", testCategories())
	if res.Kind != ResultUnrecognized {
		t.Errorf("kind = %v, want unrecognized", res.Kind)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Here you go: {\"a\":1} hope that helps", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
