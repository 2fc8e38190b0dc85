package models

// Sort fields accepted by booking list queries.
const (
	SortByCreatedAt = "createdAt"
	SortByStartTime = "startTime"
)

// ListOptions carries the optional filters every read query accepts:
// status filter, pagination and ordering.
type ListOptions struct {
	Statuses []BookingStatus `json:"statuses,omitempty"`
	Limit    int64           `json:"limit,omitempty"`
	Offset   int64           `json:"offset,omitempty"`
	SortBy   string          `json:"sortBy,omitempty"` // createdAt | startTime
	SortDesc bool            `json:"sortDesc,omitempty"`
}

// Normalize applies defaults: capped page size, createdAt ordering.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortBy != SortByCreatedAt && o.SortBy != SortByStartTime {
		o.SortBy = SortByCreatedAt
	}
	return o
}

// StatusCount is a per-status tally row.
type StatusCount struct {
	Status BookingStatus `bson:"_id" json:"status"`
	Count  int64         `bson:"count" json:"count"`
}
