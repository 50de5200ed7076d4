package phonetic

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want DistanceResult
	}{
		{"U12 U7 U3", "U12 U8 U3", DistanceResult{Distance: 1, Substitutions: 1}},
		{"U1 U2", "U1 U2", DistanceResult{}},
		{"U1 U2", "U1 U2 U3", DistanceResult{Distance: 1, Insertions: 1}},
		{"U1 U2 U3", "U1 U3", DistanceResult{Distance: 1, Deletions: 1}},
		{"", "U1 U2", DistanceResult{Distance: 2, Insertions: 2}},
		{"U1 U2", "", DistanceResult{Distance: 2, Deletions: 2}},
		{"", "", DistanceResult{}},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %+v, want %+v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDistanceSymmetricCount(t *testing.T) {
	a, b := "U1 U2 U3 U4", "U2 U3 U5"
	if Distance(a, b).Distance != Distance(b, a).Distance {
		t.Error("distance not symmetric")
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("U1 U2 U3 U4", "U1 U2 U3 U4"); s != 1 {
		t.Errorf("identical similarity = %v, want 1", s)
	}
	if s := Similarity("U1 U2 U3 U4", "U1 U2 U3 U9"); s != 0.75 {
		t.Errorf("one-sub similarity = %v, want 0.75", s)
	}
	if s := Similarity("", ""); s != 1 {
		t.Errorf("empty similarity = %v, want 1", s)
	}
	if s := Similarity("U1 U2", "U9 U8 U7 U6"); s != 0 {
		t.Errorf("disjoint similarity = %v, want 0", s)
	}
}
