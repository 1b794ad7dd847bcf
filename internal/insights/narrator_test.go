package insights

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/forecast"
)

type fakeModels struct {
	text   string
	err    error
	model  string
	prompt string
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func sampleResult() forecast.Result {
	start := civil.Date{Year: 2024, Month: 6, Day: 1}
	return forecast.Result{
		Summary: domain.ForecastSummary{
			StartingBalance: 1000,
			TotalInflow:     300,
			TotalOutflow:    450,
			NetChange:       -150,
			EndingBalance:   850,
			DailyAverageNet: -50,
			StartDate:       start,
			EndDate:         start.AddDays(2),
			HorizonDays:     2,
		},
		Days: []domain.ForecastDay{
			{Date: start, RunningBalance: 950},
			{Date: start.AddDays(1), RunningBalance: 800},
			{Date: start.AddDays(2), RunningBalance: 850},
		},
		Recurring: []domain.RecurringPattern{
			{MerchantName: "Netflix", RepresentativeAmount: 15.99, Direction: domain.DirectionOutflow,
				Frequency: domain.FrequencyMonthly, NextExpectedDate: start.AddDays(10)},
			{MerchantName: "Acme Payroll", RepresentativeAmount: -2500, Direction: domain.DirectionInflow,
				Frequency: domain.FrequencyBiweekly, NextExpectedDate: start.AddDays(4)},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("acc-1", sampleResult())

	assert.Contains(t, prompt, "Account: acc-1")
	assert.Contains(t, prompt, "Period: 2024-06-01 to 2024-06-03 (3 days)")
	assert.Contains(t, prompt, "Ending balance: 850.00")
	assert.Contains(t, prompt, "Lowest projected balance: 800.00 on 2024-06-02")
	assert.Contains(t, prompt, "- Netflix: out 15.99, monthly, next on 2024-06-11")
	assert.Contains(t, prompt, "- Acme Payroll: in 2500.00, biweekly, next on 2024-06-05")
}

func TestBuildPrompt_AllAccountsAndNoDays(t *testing.T) {
	prompt := BuildPrompt("", forecast.Result{})
	assert.Contains(t, prompt, "Account: all accounts")
	assert.NotContains(t, prompt, "Lowest projected balance")
	assert.NotContains(t, prompt, "Recurring items")
}

func TestBuildPrompt_CapsPatterns(t *testing.T) {
	result := forecast.Result{}
	for i := 0; i < maxPatternsInPrompt+3; i++ {
		result.Recurring = append(result.Recurring, domain.RecurringPattern{MerchantName: "m", RepresentativeAmount: 1})
	}
	assert.Contains(t, BuildPrompt("a", result), "- and 3 more")
}

func TestNarrate(t *testing.T) {
	models := &fakeModels{text: "```\nYour balance ends at 850.00.\n```"}
	n := newNarrator(models, "")

	text, err := n.Narrate(context.Background(), "acc-1", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "Your balance ends at 850.00.", text)
	assert.Equal(t, DefaultModelName, models.model)
	assert.Contains(t, models.prompt, "Account: acc-1")
}

func TestNarrate_Errors(t *testing.T) {
	_, err := newNarrator(&fakeModels{err: errors.New("quota")}, "m").Narrate(context.Background(), "", sampleResult())
	assert.ErrorContains(t, err, "quota")

	_, err = newNarrator(&fakeModels{text: "  "}, "m").Narrate(context.Background(), "", sampleResult())
	assert.ErrorContains(t, err, "empty response")
}

func TestCleanNarrative(t *testing.T) {
	tests := map[string]string{
		"plain":                "plain",
		"  padded  ":           "padded",
		"```text\nfenced\n```": "fenced",
		"```inline```":         "inline",
		"trailing fence\n```":  "trailing fence",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanNarrative(in), in)
	}
}
