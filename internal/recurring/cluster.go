package recurring

import (
	"math"

	"github.com/rutwin/cashflow/internal/domain"
)

// amountEpsilon absorbs float noise so that 10.99 vs 9.99 with a 1.00
// tolerance still counts as within tolerance.
const amountEpsilon = 1e-9

// Cluster is a set of same-merchant transactions with similar amounts.
type Cluster struct {
	// Anchor is the amount of the transaction that opened the cluster.
	Anchor  float64
	Members []domain.Transaction
}

// ClusterByAmount partitions one merchant group in a single greedy pass: each
// transaction joins the first cluster whose anchor is within tolerance, or
// opens a new one. The result is not a globally optimal clustering; a charge
// that drifts slowly past the tolerance splits into a new cluster even if it
// is close to the previous charge.
func ClusterByAmount(group []domain.Transaction, tolerance float64) []Cluster {
	var clusters []Cluster
	for _, t := range group {
		placed := false
		for i := range clusters {
			if math.Abs(t.Amount-clusters[i].Anchor) <= tolerance+amountEpsilon {
				clusters[i].Members = append(clusters[i].Members, t)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, Cluster{
				Anchor:  t.Amount,
				Members: []domain.Transaction{t},
			})
		}
	}
	return clusters
}
