package ingestion

import (
	"context"
	"time"

	"neo-tracker/internal/neows"
)

// FeedSource supplies raw NEO objects for a date window. Implemented by
// the live NeoWs client and the deterministic stub.
type FeedSource interface {
	FetchFeed(ctx context.Context, start, end time.Time) ([]neows.NeoObject, error)
}

// AlertSink receives notifications about freshly scored hazardous
// objects. Implemented by the websocket hub.
type AlertSink interface {
	PublishAlert(neoID, name string, score float64, level string)
}
