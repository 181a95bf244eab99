package consensus

import "testing"

func TestValidSubjectID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"abcde.2pg", true},
		{"zzzzz.2pg", true},
		{"abcd.2pg", false},    // four letters
		{"abcdef.2pg", false},  // six letters
		{"abcdE.2pg", false},   // uppercase
		{"abc1e.2pg", false},   // digit
		{"abcde.2PG", false},   // wrong suffix case
		{"abcde.jpg", false},   // wrong suffix
		{"abcde2pg", false},    // missing dot
		{"", false},
		{".2pg", false},
		{"abcde.2pgx", false},
	}
	for _, tc := range cases {
		if got := ValidSubjectID(tc.id); got != tc.want {
			t.Fatalf("ValidSubjectID(%q)=%v, want %v", tc.id, got, tc.want)
		}
	}
}
