package phonetic

import "strings"

// DistanceResult breaks a token edit distance into its operations.
type DistanceResult struct {
	Distance      int `json:"distance"`
	Insertions    int `json:"insertions"`
	Deletions     int `json:"deletions"`
	Substitutions int `json:"substitutions"`
}

// Distance computes the Levenshtein distance between two unit strings
// at token granularity (tokens are whitespace-separated), along with
// the operation counts of one minimal alignment. Insertions transform
// a into b.
func Distance(a, b string) DistanceResult {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	n, m := len(ta), len(tb)

	// dp[i][j] is the distance between ta[:i] and tb[:j].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ta[i-1] == tb[j-1] {
				dp[i][j] = dp[i-1][j-1]
				continue
			}
			best := dp[i-1][j-1] // substitution
			if dp[i-1][j] < best {
				best = dp[i-1][j] // deletion
			}
			if dp[i][j-1] < best {
				best = dp[i][j-1] // insertion
			}
			dp[i][j] = best + 1
		}
	}

	// Backtrace one minimal alignment to count operations.
	res := DistanceResult{Distance: dp[n][m]}
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ta[i-1] == tb[j-1] && dp[i][j] == dp[i-1][j-1]:
			i--
			j--
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+1:
			res.Substitutions++
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+1:
			res.Deletions++
			i--
		default:
			res.Insertions++
			j--
		}
	}
	return res
}

// Similarity returns 1 minus the normalized edit distance, where the
// distance is normalized by the longer token count. Two empty strings
// are identical (similarity 1).
func Similarity(a, b string) float64 {
	na := len(strings.Fields(a))
	nb := len(strings.Fields(b))
	longer := na
	if nb > longer {
		longer = nb
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b).Distance)/float64(longer)
}
