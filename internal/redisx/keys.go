package redisx

import "time"

const (
	// Cached order detail: order:{order_number} -> JSON body of GET /orders/{n}
	KeyOrderDetail = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderDetail = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
