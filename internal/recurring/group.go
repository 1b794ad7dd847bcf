package recurring

import (
	"sort"
	"strings"

	"github.com/rutwin/cashflow/internal/domain"
)

// KeyFunc derives the grouping key for a transaction.
type KeyFunc func(domain.Transaction) string

// MerchantKey keys a transaction by merchant name, falling back to the raw
// description. Whitespace is collapsed and case folded so "NETFLIX.COM" and
// "Netflix.com " land in the same group.
func MerchantKey(t domain.Transaction) string {
	name := t.MerchantName
	if strings.TrimSpace(name) == "" {
		name = t.Description
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// GroupByKey buckets transactions by key. Each bucket keeps the input's
// relative order and is then stably sorted by date. Transactions with an empty
// key cannot be attributed to a merchant and are left out.
func GroupByKey(txns []domain.Transaction, key KeyFunc) map[string][]domain.Transaction {
	if key == nil {
		key = MerchantKey
	}

	groups := make(map[string][]domain.Transaction)
	for _, t := range txns {
		k := key(t)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], t)
	}

	for _, members := range groups {
		sortByDate(members)
	}
	return groups
}

func sortByDate(txns []domain.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.Before(txns[j].Date)
	})
}

// sortedKeys returns map keys in a stable order so output never depends on
// map iteration.
func sortedKeys(groups map[string][]domain.Transaction) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
