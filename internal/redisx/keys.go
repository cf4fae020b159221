package redisx

import "time"

const (
	// Opaque bearer token -> user id: auth:token:{token}
	KeyAuthToken = "auth:token:%s"

	// Cached order status for fast GETs: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
