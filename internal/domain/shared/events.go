// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant
// that happened to a student or to the roster.
const (
	// Roster events
	EventStudentEnrolled EventType = "roster.student_enrolled"
	EventRosterImported  EventType = "roster.imported"

	// Session events
	EventSessionCommitted EventType = "session.committed"

	// Progression events
	EventStripeEarned      EventType = "progress.stripe_earned"
	EventReadinessChanged  EventType = "progress.readiness_changed"
	EventStudentPromoted   EventType = "progress.student_promoted"
	EventFeedbackGenerated EventType = "progress.feedback_generated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Roster Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentEnrolledEvent is emitted for every student committed from an import batch.
type StudentEnrolledEvent struct {
	BaseEvent
	Name     string `json:"name"`
	BeltID   string `json:"belt_id"`
	Stripes  int    `json:"stripes"`
	Location string `json:"location"`
	Class    string `json:"class"`
	BatchID  string `json:"batch_id"`
}

// Payload implements Event interface.
func (e StudentEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":     e.Name,
		"belt_id":  e.BeltID,
		"stripes":  e.Stripes,
		"location": e.Location,
		"class":    e.Class,
		"batch_id": e.BatchID,
	}
}

// NewStudentEnrolledEvent creates a new StudentEnrolledEvent.
func NewStudentEnrolledEvent(studentID, name, beltID string, stripes int, location, class, batchID string) StudentEnrolledEvent {
	return StudentEnrolledEvent{
		BaseEvent: NewBaseEvent(EventStudentEnrolled, studentID),
		Name:      name,
		BeltID:    beltID,
		Stripes:   stripes,
		Location:  location,
		Class:     class,
		BatchID:   batchID,
	}
}

// RosterImportedEvent is emitted once per committed import batch.
type RosterImportedEvent struct {
	BaseEvent
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Payload implements Event interface.
func (e RosterImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"imported": e.Imported,
		"skipped":  e.Skipped,
	}
}

// NewRosterImportedEvent creates a new RosterImportedEvent.
func NewRosterImportedEvent(batchID string, imported, skipped int) RosterImportedEvent {
	return RosterImportedEvent{
		BaseEvent: NewBaseEvent(EventRosterImported, batchID),
		Imported:  imported,
		Skipped:   skipped,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionCommittedEvent is emitted after a class session has been persisted.
type SessionCommittedEvent struct {
	BaseEvent
	SessionDate time.Time `json:"session_date"`
	Location    string    `json:"location"`
	Class       string    `json:"class"`
	Attending   int       `json:"attending"`
	Graded      int       `json:"graded"`
	TotalPoints int       `json:"total_points"`
}

// Payload implements Event interface.
func (e SessionCommittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_date": e.SessionDate.Format("2006-01-02"),
		"location":     e.Location,
		"class":        e.Class,
		"attending":    e.Attending,
		"graded":       e.Graded,
		"total_points": e.TotalPoints,
	}
}

// NewSessionCommittedEvent creates a new SessionCommittedEvent.
func NewSessionCommittedEvent(sessionID string, date time.Time, location, class string, attending, graded, totalPoints int) SessionCommittedEvent {
	return SessionCommittedEvent{
		BaseEvent:   NewBaseEvent(EventSessionCommitted, sessionID),
		SessionDate: date,
		Location:    location,
		Class:       class,
		Attending:   attending,
		Graded:      graded,
		TotalPoints: totalPoints,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// StripeEarnedEvent is emitted when a session pushes a student past a stripe threshold.
type StripeEarnedEvent struct {
	BaseEvent
	BeltID        string `json:"belt_id"`
	StripesBefore int    `json:"stripes_before"`
	StripesAfter  int    `json:"stripes_after"`
	TotalPoints   int    `json:"total_points"`
	ReadyEligible bool   `json:"ready_eligible"`
}

// Payload implements Event interface.
func (e StripeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"belt_id":        e.BeltID,
		"stripes_before": e.StripesBefore,
		"stripes_after":  e.StripesAfter,
		"total_points":   e.TotalPoints,
		"ready_eligible": e.ReadyEligible,
	}
}

// NewStripeEarnedEvent creates a new StripeEarnedEvent.
func NewStripeEarnedEvent(studentID, beltID string, before, after, totalPoints int, eligible bool) StripeEarnedEvent {
	return StripeEarnedEvent{
		BaseEvent:     NewBaseEvent(EventStripeEarned, studentID),
		BeltID:        beltID,
		StripesBefore: before,
		StripesAfter:  after,
		TotalPoints:   totalPoints,
		ReadyEligible: eligible,
	}
}

// NewStripes returns how many stripes were earned.
func (e StripeEarnedEvent) NewStripes() int {
	return e.StripesAfter - e.StripesBefore
}

// ReadinessChangedEvent is emitted when a coach toggles the grading readiness flag.
type ReadinessChangedEvent struct {
	BaseEvent
	Ready bool `json:"ready"`
}

// Payload implements Event interface.
func (e ReadinessChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"ready": e.Ready,
	}
}

// NewReadinessChangedEvent creates a new ReadinessChangedEvent.
func NewReadinessChangedEvent(studentID string, ready bool) ReadinessChangedEvent {
	return ReadinessChangedEvent{
		BaseEvent: NewBaseEvent(EventReadinessChanged, studentID),
		Ready:     ready,
	}
}

// StudentPromotedEvent is emitted when a student advances to the next belt.
type StudentPromotedEvent struct {
	BaseEvent
	FromBeltID string    `json:"from_belt_id"`
	ToBeltID   string    `json:"to_belt_id"`
	PromotedAt time.Time `json:"promoted_at"`
}

// Payload implements Event interface.
func (e StudentPromotedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"from_belt_id": e.FromBeltID,
		"to_belt_id":   e.ToBeltID,
		"promoted_at":  e.PromotedAt,
	}
}

// NewStudentPromotedEvent creates a new StudentPromotedEvent.
func NewStudentPromotedEvent(studentID, fromBeltID, toBeltID string, at time.Time) StudentPromotedEvent {
	return StudentPromotedEvent{
		BaseEvent:  NewBaseEvent(EventStudentPromoted, studentID),
		FromBeltID: fromBeltID,
		ToBeltID:   toBeltID,
		PromotedAt: at,
	}
}

// FeedbackGeneratedEvent is emitted when generated text was attached to a student.
type FeedbackGeneratedEvent struct {
	BaseEvent
	Source string `json:"source"`
	Length int    `json:"length"`
}

// Payload implements Event interface.
func (e FeedbackGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"source": e.Source,
		"length": e.Length,
	}
}

// NewFeedbackGeneratedEvent creates a new FeedbackGeneratedEvent.
func NewFeedbackGeneratedEvent(studentID, source string, length int) FeedbackGeneratedEvent {
	return FeedbackGeneratedEvent{
		BaseEvent: NewBaseEvent(EventFeedbackGenerated, studentID),
		Source:    source,
		Length:    length,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event payload into an envelope.
func NewEventEnvelope(id string, event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, WrapError("shared", "NewEventEnvelope", ErrInvalidFormat, "failed to encode payload", err)
	}
	env := EventEnvelope{
		ID:          id,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}
	if b, ok := event.(interface{ Base() BaseEvent }); ok {
		env.Version = b.Base().Version
		env.CorrelationID = b.Base().CorrelationID
	}
	return env, nil
}

// Base returns the embedded base event.
func (e BaseEvent) Base() BaseEvent {
	return e
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
