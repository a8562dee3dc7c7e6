package valueobjects

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssessmentID(t *testing.T) {
	id := NewAssessmentID()
	assert.False(t, id.IsEmpty())

	// a freshly generated ID always parses
	parsed, err := ParseAssessmentID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	assert.Contains(t, id.String(), fmt.Sprintf("TRA-%d-", time.Now().UTC().Year()))
}

func TestParseAssessmentID(t *testing.T) {
	valid := []string{"TRA-2025-ABCDEF", "TRA-1999-000000", "TRA-2030-F0F0F0"}
	for _, raw := range valid {
		_, err := ParseAssessmentID(raw)
		assert.NoError(t, err, raw)
	}

	invalid := []string{
		"",
		"TRA-2025-abcdef", // lowercase hex
		"TRA-25-ABCDEF",   // short year
		"TRA-2025-ABCDE",  // short suffix
		"TRA-2025-ABCDEFG",
		"XYZ-2025-ABCDEF",
		"TRA-2025-GHIJKL", // non-hex
	}
	for _, raw := range invalid {
		_, err := ParseAssessmentID(raw)
		assert.Error(t, err, raw)
	}
}

func TestAssessmentIDUniqueness(t *testing.T) {
	seen := make(map[AssessmentID]struct{})
	for i := 0; i < 100; i++ {
		seen[NewAssessmentID()] = struct{}{}
	}
	assert.Greater(t, len(seen), 95, "IDs must be effectively unique")
}
