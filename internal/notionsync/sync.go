// Package notionsync publishes detected recurring patterns to a Notion
// database, one page per merchant key and account.
package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rutwin/cashflow/internal/domain"
	"github.com/rutwin/cashflow/internal/logger"
)

// Stats reports what a sync did (or would do, on a dry run).
type Stats struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// Syncer upserts patterns into one database.
type Syncer struct {
	client     NotionService
	databaseID string
	now        func() time.Time
}

// NewSyncer creates a Syncer for databaseID.
func NewSyncer(client NotionService, databaseID string) *Syncer {
	return &Syncer{client: client, databaseID: databaseID, now: time.Now}
}

// SyncPatterns makes the database mirror patterns for accountID: pages are
// matched by merchant key, existing ones updated, missing ones created and
// pages for patterns that are no longer detected archived. Pages belonging to
// other accounts are never touched. Individual page failures are logged and
// counted; only a failed database query aborts the sync.
func (s *Syncer) SyncPatterns(ctx context.Context, accountID string, patterns []domain.RecurringPattern, dryRun bool) (Stats, error) {
	log := logger.FromContext(ctx).With().
		Str("account_id", accountID).
		Bool("dry_run", dryRun).
		Logger()

	log.Info().Int("pattern_count", len(patterns)).Msg("Starting recurring pattern sync to Notion")

	pages, err := s.client.QueryAllPages(ctx, s.databaseID)
	if err != nil {
		return Stats{}, fmt.Errorf("SyncPatterns: querying database: %w", err)
	}
	log.Debug().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	// Map merchant key -> page ID for this account's pages
	existing := make(map[string]string)
	var duplicates []string
	for _, page := range pages {
		if plainText(page, PropAccount) != accountID {
			continue
		}
		key := plainText(page, PropMerchantKey)
		if key == "" {
			continue
		}
		if _, seen := existing[key]; seen {
			duplicates = append(duplicates, string(page.ID))
			continue
		}
		existing[key] = string(page.ID)
	}

	var stats Stats
	syncedAt := s.now()
	current := make(map[string]bool, len(patterns))

	for _, p := range patterns {
		current[p.MerchantKey] = true
		props := PatternToNotionProperties(p, accountID, syncedAt)
		pageID, found := existing[p.MerchantKey]

		switch {
		case dryRun && found:
			log.Info().Str("merchant_key", p.MerchantKey).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
			stats.Updated++
		case dryRun:
			log.Info().Str("merchant_key", p.MerchantKey).Msg("[DRY RUN] Would create Notion page")
			stats.Created++
		case found:
			if _, err := s.client.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("merchant_key", p.MerchantKey).Str("page_id", pageID).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++
		default:
			page, err := s.client.CreatePage(ctx, s.databaseID, props)
			if err != nil {
				log.Warn().Err(err).Str("merchant_key", p.MerchantKey).Msg("Failed to create Notion page")
				stats.Failed++
				continue
			}
			log.Debug().Str("merchant_key", p.MerchantKey).Str("page_id", string(page.ID)).Msg("Created Notion page")
			stats.Created++
		}
	}

	// Archive patterns that are no longer detected, plus duplicate pages
	stale := duplicates
	for key, pageID := range existing {
		if !current[key] {
			stale = append(stale, pageID)
		}
	}
	for _, pageID := range stale {
		if dryRun {
			log.Info().Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
			stats.Archived++
			continue
		}
		if err := s.client.ArchivePage(ctx, pageID); err != nil {
			log.Warn().Err(err).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
			stats.Failed++
			continue
		}
		stats.Archived++
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("failed", stats.Failed).
		Msg("Recurring pattern sync completed")

	return stats, nil
}
