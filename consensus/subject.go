package consensus

// Subject identifiers name stored image artifacts: exactly five lowercase
// ASCII letters followed by the literal ".2pg" suffix, e.g. "abcde.2pg".
const (
	SubjectIDSuffix  = ".2pg"
	subjectIDNameLen = 5
	subjectIDLen     = subjectIDNameLen + len(SubjectIDSuffix)
)

// ValidSubjectID reports whether s matches the subject-ID grammar. This is
// checked before any other transaction processing.
func ValidSubjectID(s string) bool {
	if len(s) != subjectIDLen {
		return false
	}
	for i := 0; i < subjectIDNameLen; i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return s[subjectIDNameLen:] == SubjectIDSuffix
}
