package outbox

// Status values shared by every module outbox table. Rows are written as
// pending inside the same transaction as the state change; the relay worker
// flips them to published only after the broker acknowledges the event.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
