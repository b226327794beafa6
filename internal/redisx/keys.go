package redisx

import "time"

const (
	// Idempotent quote acceptance: idem:quote:accept:{idempotency key} -> order id
	KeyIdemQuoteAccept = "idem:quote:accept:%s"

	// Dedup event processing: dedup:{service}:{event id}
	KeyDedup = "dedup:%s:%s"

	// One side effect of a deduped event: {dedup key}:{step}
	KeyDedupStep = "%s:%s"

	// Daily summary sent marker: summary:sent:{YYYY-MM-DD}
	KeySummarySent = "summary:sent:%s"

	// Dashboard counters cache
	KeyDashboard = "cache:dashboard"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
	TTLSummarySent = 36 * time.Hour
	TTLDashboard   = 60 * time.Second
)
