package common

// PolicyVersion is the terms/privacy policy version this build requires.
// Versions are sortable identifiers (YYYY-MM); a consent record carrying an
// older version than this one means the user must re-accept.
const PolicyVersion = "2026-01"

// PolicyOutdated reports whether a recorded consent version predates the
// version this build requires. An empty recorded version means no consent
// was ever recorded, which is not the same as an outdated one.
func PolicyOutdated(recorded string) bool {
	return recorded != "" && recorded < PolicyVersion
}
