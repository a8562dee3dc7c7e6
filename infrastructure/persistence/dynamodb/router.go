package dynamodb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	pkgerrors "tra-backend/pkg/errors"
)

// QueryShape is the closed set of question shapes the store answers. Each
// shape resolves to exactly one plan: a direct key lookup, or an index query
// with an optional fallback-scan predicate for pre-index records. Callers
// construct shapes; only this file knows which index serves which shape.
type QueryShape interface {
	isQueryShape()
}

// ByID fetches a single item by its full primary key. It has no fallback:
// primary keys exist on every record regardless of age.
type ByID struct {
	PK string
	SK string
}

// ItemsBySession lists a session's items, optionally narrowed to one
// entity type by prefix.
type ItemsBySession struct {
	SessionID        string
	EntityTypePrefix string
}

// EventsByAssessment lists an assessment's audit events, optionally
// narrowed to event types with the given prefix.
type EventsByAssessment struct {
	AssessmentID    string
	EventTypePrefix string
}

// AssessmentsByState lists assessments in a lifecycle state, ordered by
// updated_at.
type AssessmentsByState struct {
	State string
}

// AssessmentsByTitlePrefix lists assessments whose lowercase title starts
// with the given prefix.
type AssessmentsByTitlePrefix struct {
	Prefix string
}

// ItemsByType lists every item of one entity type, ordered by updated_at.
type ItemsByType struct {
	EntityType string
}

func (ByID) isQueryShape()                     {}
func (ItemsBySession) isQueryShape()           {}
func (EventsByAssessment) isQueryShape()       {}
func (AssessmentsByState) isQueryShape()       {}
func (AssessmentsByTitlePrefix) isQueryShape() {}
func (ItemsByType) isQueryShape()              {}

// sortCondition narrows a query by its index sort key
type sortCondition struct {
	attribute  string
	value      string
	beginsWith bool
}

// queryPlan describes an index query fully resolved from a shape
type queryPlan struct {
	index          string
	partitionAttr  string
	partitionValue string
	sort           *sortCondition
}

// getPlan describes a direct primary-key lookup
type getPlan struct {
	pk string
	sk string
}

// plan is the resolved execution plan for a shape. Exactly one field is set.
type plan struct {
	get   *getPlan
	query *queryPlan
}

// resolve maps a shape onto the index that serves it. An unknown shape is a
// programming error, never silent fallthrough to a scan.
func resolve(shape QueryShape) (plan, error) {
	switch s := shape.(type) {
	case ByID:
		return plan{get: &getPlan{pk: s.PK, sk: s.SK}}, nil

	case ItemsBySession:
		p := &queryPlan{
			index:          IndexBySession,
			partitionAttr:  attrSessionID,
			partitionValue: s.SessionID,
		}
		if s.EntityTypePrefix != "" {
			p.sort = &sortCondition{attribute: attrEntityType, value: s.EntityTypePrefix, beginsWith: true}
		}
		return plan{query: p}, nil

	case EventsByAssessment:
		p := &queryPlan{
			index:          IndexByAssessmentEvent,
			partitionAttr:  attrAssessmentID,
			partitionValue: s.AssessmentID,
		}
		if s.EventTypePrefix != "" {
			p.sort = &sortCondition{attribute: attrEventType, value: s.EventTypePrefix, beginsWith: true}
		}
		return plan{query: p}, nil

	case AssessmentsByState:
		return plan{query: &queryPlan{
			index:          IndexByState,
			partitionAttr:  attrCurrentState,
			partitionValue: s.State,
		}}, nil

	case AssessmentsByTitlePrefix:
		return plan{query: &queryPlan{
			index:          IndexByTitle,
			partitionAttr:  attrEntityType,
			partitionValue: entityTypeAssessment,
			sort:           &sortCondition{attribute: attrTitleLowercase, value: strings.ToLower(s.Prefix), beginsWith: true},
		}}, nil

	case ItemsByType:
		return plan{query: &queryPlan{
			index:          IndexByEntityType,
			partitionAttr:  attrEntityType,
			partitionValue: s.EntityType,
		}}, nil

	default:
		return plan{}, pkgerrors.NewInternalError("unroutable query shape")
	}
}

// resolveFallback builds the scan filter equivalent to a shape's index query
// for records written before the indexes existed. Such records lack the
// index attributes, so the filter narrows by key prefixes instead where it
// can. ByID never needs a fallback.
func resolveFallback(shape QueryShape) (expression.ConditionBuilder, bool) {
	switch s := shape.(type) {
	case ItemsBySession:
		cond := expression.Name(attrSessionID).Equal(expression.Value(s.SessionID))
		if s.EntityTypePrefix != "" {
			cond = cond.And(fallbackTypeCondition(s.EntityTypePrefix))
		}
		return cond, true

	case EventsByAssessment:
		cond := expression.Name(attrPK).Equal(expression.Value(pkPrefixAssessment + s.AssessmentID)).
			And(expression.Name(attrSK).BeginsWith(skPrefixEvent))
		if s.EventTypePrefix != "" {
			cond = cond.And(expression.Name(attrEventType).BeginsWith(s.EventTypePrefix))
		}
		return cond, true

	case AssessmentsByState:
		return expression.Name(attrCurrentState).Equal(expression.Value(s.State)).
			And(expression.Name(attrSK).Equal(expression.Value(skMetadata))).
			And(expression.Name(attrPK).BeginsWith(pkPrefixAssessment)), true

	case AssessmentsByTitlePrefix:
		// legacy records lack title_lowercase, and a filter on a missing
		// attribute never matches, so the scan narrows by key shape only;
		// the repository re-filters on the real title after the fetch
		return expression.Name(attrSK).Equal(expression.Value(skMetadata)).
			And(expression.Name(attrPK).BeginsWith(pkPrefixAssessment)), true

	case ItemsByType:
		return fallbackTypeCondition(s.EntityType), true

	default:
		return expression.ConditionBuilder{}, false
	}
}

// fallbackTypeCondition narrows a scan to one entity type by key shape
// alone, since legacy records may lack the entity_type attribute.
func fallbackTypeCondition(entityType string) expression.ConditionBuilder {
	switch entityType {
	case entityTypeAssessment:
		return expression.Name(attrPK).BeginsWith(pkPrefixAssessment).
			And(expression.Name(attrSK).Equal(expression.Value(skMetadata)))
	case entityTypeDocument:
		return expression.Name(attrPK).BeginsWith(pkPrefixDocument)
	case entityTypeEvent:
		return expression.Name(attrSK).BeginsWith(skPrefixEvent)
	case entityTypeMessage:
		return expression.Name(attrSK).BeginsWith(skPrefixMessage)
	default:
		// an unknown type can only match on the attribute itself
		return expression.Name(attrEntityType).Equal(expression.Value(entityType))
	}
}
