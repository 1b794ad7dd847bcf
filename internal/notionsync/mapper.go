package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/rutwin/cashflow/internal/domain"
)

// Property names of the recurring-patterns database. The database must define
// them with these exact names and types.
const (
	PropMerchant     = "Merchant"         // title
	PropMerchantKey  = "Merchant Key"     // rich text
	PropAccount      = "Account"          // rich text
	PropAmount       = "Amount"           // number, always positive
	PropDirection    = "Direction"        // select: inflow | outflow
	PropFrequency    = "Frequency"        // select
	PropOccurrences  = "Occurrences"      // number
	PropInterval     = "Average Interval" // number, days
	PropFirstSeen    = "First Seen"       // date
	PropLastSeen     = "Last Seen"        // date
	PropNextExpected = "Next Expected"    // date
	PropSyncedAt     = "Last Synced"      // date
)

// PatternToNotionProperties converts a detected pattern into page properties.
func PatternToNotionProperties(p domain.RecurringPattern, accountID string, syncedAt time.Time) notionapi.Properties {
	name := p.MerchantName
	if name == "" {
		name = p.MerchantKey
	}
	amount := p.RepresentativeAmount
	if amount < 0 {
		amount = -amount
	}

	props := notionapi.Properties{
		PropMerchant: notionapi.TitleProperty{
			Title: richText(name),
		},
		PropMerchantKey: notionapi.RichTextProperty{
			RichText: richText(p.MerchantKey),
		},
		PropAmount:      notionapi.NumberProperty{Number: amount},
		PropDirection:   notionapi.SelectProperty{Select: notionapi.Option{Name: string(p.Direction)}},
		PropFrequency:   notionapi.SelectProperty{Select: notionapi.Option{Name: string(p.Frequency)}},
		PropOccurrences: notionapi.NumberProperty{Number: float64(p.OccurrenceCount)},
		PropInterval:    notionapi.NumberProperty{Number: p.AverageIntervalDays},
		PropSyncedAt:    dateProperty(syncedAt.UTC()),
	}

	if accountID != "" {
		props[PropAccount] = notionapi.RichTextProperty{RichText: richText(accountID)}
	}
	if p.FirstSeenDate.IsValid() {
		props[PropFirstSeen] = dateProperty(civilToTime(p.FirstSeenDate))
	}
	if p.LastSeenDate.IsValid() {
		props[PropLastSeen] = dateProperty(civilToTime(p.LastSeenDate))
	}
	if p.NextExpectedDate.IsValid() {
		props[PropNextExpected] = dateProperty(civilToTime(p.NextExpectedDate))
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func civilToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// plainText reads a title or rich-text property from a queried page.
// Returns empty string if not found.
func plainText(page notionapi.Page, name string) string {
	var parts []notionapi.RichText
	switch prop := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		parts = prop.RichText
	case *notionapi.TitleProperty:
		parts = prop.Title
	default:
		return ""
	}
	if len(parts) == 0 {
		return ""
	}
	if parts[0].PlainText != "" {
		return parts[0].PlainText
	}
	if parts[0].Text != nil {
		return parts[0].Text.Content
	}
	return ""
}
