// scoring implements the deck scoring engine: pure functions, no I/O,
// safe to call concurrently.
package scoring

import (
	"math"
	"sort"

	"leaderbox-server/models"
)

// DeckStats is the stat vector derived from a deck. Quality and Popularity
// stay on their raw scales (0–10 and unbounded); Pretentious and Rewatch are
// 0–100 percentages. Total is their plain sum — the scales are mixed on
// purpose and must stay that way for compatibility with stored records.
type DeckStats struct {
	Quality     float64 `json:"quality"`
	Popularity  float64 `json:"popularity"`
	Pretentious int     `json:"pretentious"`
	Rewatch     int     `json:"rewatch"`
	Total       int     `json:"total_points"`
}

// ComputeDeckStats turns a deck of up to four movies into its stat vector.
// An empty deck scores zero everywhere. Missing fields count as zero, they
// are never rejected.
func ComputeDeckStats(deck []models.Movie) DeckStats {
	if len(deck) == 0 {
		return DeckStats{}
	}

	minPop, maxPop := deck[0].Popularity, deck[0].Popularity
	for _, m := range deck[1:] {
		if m.Popularity < minPop {
			minPop = m.Popularity
		}
		if m.Popularity > maxPop {
			maxPop = m.Popularity
		}
	}

	n := float64(len(deck))
	var sumScore, sumPop, sumPret, sumRewatch float64
	for _, m := range deck {
		normScore := clamp01(m.VoteAverage / 10)
		// Min-max within the deck; all-equal popularities normalize to 0.5
		// so the division by zero never happens.
		normPop := 0.5
		if maxPop > minPop {
			normPop = (m.Popularity - minPop) / (maxPop - minPop)
		}

		sumScore += m.VoteAverage
		sumPop += m.Popularity
		sumPret += normScore * (1 - normPop)
		sumRewatch += normScore * normPop
	}

	stats := DeckStats{
		Quality:     round2(sumScore / n),
		Popularity:  round2(sumPop / n),
		Pretentious: int(math.Round(sumPret / n * 100)),
		Rewatch:     int(math.Round(sumRewatch / n * 100)),
	}
	stats.Total = int(math.Round(float64(stats.Pretentious) + float64(stats.Rewatch) + stats.Quality + stats.Popularity))
	return stats
}

// AllocateAttackPoints splits total proportionally to each movie's raw score.
// Floors are assigned first, then the leftover units go to the movies with
// the largest fractional remainder, ties broken by deck order. When every
// score is zero the split is as even as possible, remainder to the earliest
// slots. The returned slice always sums to total exactly.
func AllocateAttackPoints(deck []models.Movie, total int) []int {
	n := len(deck)
	if n == 0 {
		return nil
	}

	points := make([]int, n)
	var scoreSum float64
	for _, m := range deck {
		scoreSum += m.VoteAverage
	}

	if scoreSum == 0 {
		base, rem := total/n, total%n
		for i := range points {
			points[i] = base
			if i < rem {
				points[i]++
			}
		}
		return points
	}

	remainders := make([]int, n)
	for i := range remainders {
		remainders[i] = i
	}
	fracs := make([]float64, n)
	allocated := 0
	for i, m := range deck {
		exact := m.VoteAverage / scoreSum * float64(total)
		floor := math.Floor(exact)
		points[i] = int(floor)
		fracs[i] = exact - floor
		allocated += int(floor)
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		return fracs[remainders[a]] > fracs[remainders[b]]
	})
	for i := 0; i < total-allocated; i++ {
		points[remainders[i]]++
	}
	return points
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
