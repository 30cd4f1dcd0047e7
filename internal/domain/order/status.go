package order

// Status represents the canonical lifecycle status of an order.
// Marketplace-specific status vocabularies are normalized into this closed
// enum before any order is persisted.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// AllStatuses lists every canonical status
var AllStatuses = []Status{
	StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
	StatusDelivered, StatusCancelled, StatusRefunded,
}

// IsValid checks if the status is a valid canonical Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for statuses no manual transition may leave
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// CanTransitionTo checks whether a user-driven update may move the order
// from s to target. Marketplace-driven updates bypass this graph entirely:
// the marketplace is authoritative and may set any canonical status.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusRefunded
	case StatusCancelled, StatusRefunded:
		return false // Terminal states
	}
	return false
}

// Actor identifies who caused a status change
type Actor string

const (
	ActorSystem     Actor = "SYSTEM"
	ActorAutomation Actor = "AUTOMATION"
	ActorUser       Actor = "USER"
)

// IsValid checks if the actor is valid
func (a Actor) IsValid() bool {
	switch a {
	case ActorSystem, ActorAutomation, ActorUser:
		return true
	}
	return false
}
