// Package insights turns forecast numbers into a short plain-language
// narrative using a Gemini model.
package insights

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/forecast"
)

// DefaultModelName is the default Gemini model used for narratives.
const DefaultModelName = "gemini-2.5-flash"

// maxPatternsInPrompt caps how many recurring patterns are described to the model.
const maxPatternsInPrompt = 15

// Narrator writes a narrative for a forecast.
type Narrator interface {
	Narrate(ctx context.Context, accountID string, result forecast.Result) (string, error)
}

// contentGenerator is the subset of *genai.Models the narrator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator is the Narrator backed by the Gemini API.
type GeminiNarrator struct {
	models contentGenerator
	model  string
}

// NewGeminiNarrator creates a GenAI client. Credentials come from the
// environment (GOOGLE_API_KEY, or Vertex AI project settings).
func NewGeminiNarrator(ctx context.Context, model string) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiNarrator: create genai client: %w", err)
	}
	return newNarrator(client.Models, model), nil
}

func newNarrator(models contentGenerator, model string) *GeminiNarrator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiNarrator{models: models, model: model}
}

// Narrate asks the model to explain the forecast.
func (n *GeminiNarrator) Narrate(ctx context.Context, accountID string, result forecast.Result) (string, error) {
	prompt := BuildPrompt(accountID, result)

	resp, err := n.models.GenerateContent(ctx, n.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Narrate: generate content: %w", err)
	}

	text := cleanNarrative(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Narrate: empty response from model")
	}
	return text, nil
}

// BuildPrompt renders the forecast as plain facts followed by instructions.
// Amounts are always reported as positive money in/out figures.
func BuildPrompt(accountID string, result forecast.Result) string {
	s := result.Summary

	var b strings.Builder
	b.WriteString("You are a personal finance analyst. Explain the following cash-flow forecast to the account holder.\n\n")

	if accountID == "" {
		accountID = "all accounts"
	}
	fmt.Fprintf(&b, "Account: %s\n", accountID)
	fmt.Fprintf(&b, "Period: %s to %s (%d days)\n", s.StartDate, s.EndDate, len(result.Days))
	fmt.Fprintf(&b, "Starting balance: %.2f\n", s.StartingBalance)
	fmt.Fprintf(&b, "Projected money in: %.2f\n", s.TotalInflow)
	fmt.Fprintf(&b, "Projected money out: %.2f\n", s.TotalOutflow)
	fmt.Fprintf(&b, "Net change: %.2f\n", s.NetChange)
	fmt.Fprintf(&b, "Ending balance: %.2f\n", s.EndingBalance)
	fmt.Fprintf(&b, "Average daily net: %.2f\n", s.DailyAverageNet)

	if low, ok := lowestDay(result.Days); ok {
		fmt.Fprintf(&b, "Lowest projected balance: %.2f on %s\n", low.RunningBalance, low.Date)
	}

	if len(result.Recurring) > 0 {
		b.WriteString("\nRecurring items:\n")
		for i, p := range result.Recurring {
			if i == maxPatternsInPrompt {
				fmt.Fprintf(&b, "- and %d more\n", len(result.Recurring)-maxPatternsInPrompt)
				break
			}
			amount := p.RepresentativeAmount
			if amount < 0 {
				amount = -amount
			}
			fmt.Fprintf(&b, "- %s: %s %.2f, %s, next on %s\n",
				p.MerchantName, directionWord(p.Direction), amount, p.Frequency, p.NextExpectedDate)
		}
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Write at most 5 short sentences of plain text.\n")
	b.WriteString("- Mention the ending balance and whether the balance goes below zero.\n")
	b.WriteString("- Name the largest recurring expenses if any.\n")
	b.WriteString("- Do NOT use Markdown, bullet points or code fences.\n")
	b.WriteString("- Do NOT invent numbers that are not listed above.\n")

	return b.String()
}

func lowestDay(days []domain.ForecastDay) (domain.ForecastDay, bool) {
	if len(days) == 0 {
		return domain.ForecastDay{}, false
	}
	low := days[0]
	for _, d := range days[1:] {
		if d.RunningBalance < low.RunningBalance {
			low = d
		}
	}
	return low, true
}

func directionWord(d domain.Direction) string {
	if d == domain.DirectionInflow {
		return "in"
	}
	return "out"
}

// cleanNarrative strips code fences the model may add despite instructions.
func cleanNarrative(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
