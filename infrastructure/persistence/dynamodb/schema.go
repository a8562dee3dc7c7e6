package dynamodb

import (
	"fmt"
	"time"
)

// All entities share one physical table. Items are distinguished by the
// entity_type attribute and a composite (pk, sk) primary key:
//
//	assessment  ASSESSMENT#<id>  /  METADATA
//	document    DOCUMENT#<id>    /  METADATA
//	event       ASSESSMENT#<id>  /  EVENT#<timestamp>#<event_id>
//	message     SESSION#<id>     /  MESSAGE#<timestamp>#<message_id>
//
// Five GSIs route the listing queries; every index key attribute is written
// by the populator at write time, never derived at read time.
const (
	// IndexBySession serves "all items of session X, optionally by type"
	IndexBySession = "by-session"
	// IndexByAssessmentEvent serves "all events/reviews for assessment X"
	IndexByAssessmentEvent = "by-assessment-event"
	// IndexByState serves "assessments in state S, newest first"
	IndexByState = "by-state"
	// IndexByTitle serves lowercase title prefix search. The partition key is
	// entity_type and the sort key title_lowercase: a begins_with condition is
	// only expressible on a sort key, so the title attribute sorts rather
	// than partitions.
	IndexByTitle = "by-title"
	// IndexByEntityType serves "all items of kind K, newest first"
	IndexByEntityType = "by-entity-type"
)

// Projection attribute names, shared between the populator, the router and
// the fallback-scan filters.
const (
	attrPK             = "pk"
	attrSK             = "sk"
	attrEntityType     = "entity_type"
	attrSessionID      = "session_id"
	attrAssessmentID   = "assessment_id"
	attrEventType      = "event_type"
	attrCurrentState   = "current_state"
	attrCreatedAt      = "created_at"
	attrUpdatedAt      = "updated_at"
	attrTitleLowercase = "title_lowercase"
	attrVersion        = "version"
)

// entity_type discriminant values
const (
	entityTypeAssessment = "assessment"
	entityTypeDocument   = "document"
	entityTypeEvent      = "event"
	entityTypeMessage    = "message"
)

// key prefixes
const (
	pkPrefixAssessment = "ASSESSMENT#"
	pkPrefixDocument   = "DOCUMENT#"
	pkPrefixSession    = "SESSION#"
	skMetadata         = "METADATA"
	skPrefixEvent      = "EVENT#"
	skPrefixMessage    = "MESSAGE#"
)

// timeFormat is the stored timestamp layout. The fraction is fixed-width
// (RFC3339Nano drops trailing zeros) so timestamps sort correctly as
// strings, which the sort keys and the updated_at indexes rely on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func assessmentKey(id string) (pk, sk string) {
	return pkPrefixAssessment + id, skMetadata
}

func documentKey(id string) (pk, sk string) {
	return pkPrefixDocument + id, skMetadata
}

func eventKey(assessmentID string, ts time.Time, eventID string) (pk, sk string) {
	return pkPrefixAssessment + assessmentID,
		fmt.Sprintf("%s%s#%s", skPrefixEvent, ts.UTC().Format(timeFormat), eventID)
}

func messageKey(sessionID string, ts time.Time, messageID string) (pk, sk string) {
	return pkPrefixSession + sessionID,
		fmt.Sprintf("%s%s#%s", skPrefixMessage, ts.UTC().Format(timeFormat), messageID)
}

// primaryKey joins pk and sk into the deduplication key used when merging
// the index-query and fallback-scan branches of a listing.
func primaryKey(pk, sk string) string {
	return pk + "|" + sk
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime accepts any RFC3339 fraction width, since legacy records may
// predate the fixed-width layout.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
