package earnings

import "time"

// StatementRequest selects the statement period
type StatementRequest struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required,gtfield=From"`
}
