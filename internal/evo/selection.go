package evo

import "math/rand"

// Parent selection samples ranks from a population sorted best-first. Rank
// weights follow the triangular series: rank 0 weighs n, the weakest rank
// weighs 1, so the champion is n times as likely as the weakest member.

// pickRank draws a rank from [0, n) with probability proportional to n-rank.
// The population backing the ranks must already be sorted.
func pickRank(rng *rand.Rand, n int) int {
	return rankForDraw(rng.Float64(), n)
}

// rankForDraw maps a uniform draw u in [0, 1) onto a rank by scanning
// cumulative rank weights. Numeric fall-through lands on the champion.
func rankForDraw(u float64, n int) int {
	total := float64(n * (n + 1) / 2)
	scaled := u * total
	acc := 0.0
	for i := 0; i < n; i++ {
		acc += float64(n - i)
		if scaled < acc {
			return i
		}
	}
	return 0
}
