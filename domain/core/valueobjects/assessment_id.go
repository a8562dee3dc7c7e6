package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "tra-backend/pkg/errors"
)

// AssessmentID is the natural identifier of an assessment.
// Format: TRA-<year>-<6 hex>, e.g. TRA-2025-A1B2C3. The assessment ID is the
// TRA ID; there is no separate surrogate key.
type AssessmentID string

var assessmentIDPattern = regexp.MustCompile(`^TRA-\d{4}-[0-9A-F]{6}$`)

// NewAssessmentID generates a new assessment ID for the current year
func NewAssessmentID() AssessmentID {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return AssessmentID(fmt.Sprintf("TRA-%d-%s", time.Now().UTC().Year(), suffix))
}

// ParseAssessmentID validates a raw string as an assessment ID
func ParseAssessmentID(raw string) (AssessmentID, error) {
	if !assessmentIDPattern.MatchString(raw) {
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("invalid assessment id %q: expected TRA-YYYY-XXXXXX", raw))
	}
	return AssessmentID(raw), nil
}

// String returns the string form of the ID
func (id AssessmentID) String() string {
	return string(id)
}

// IsEmpty reports whether the ID is unset
func (id AssessmentID) IsEmpty() bool {
	return id == ""
}
