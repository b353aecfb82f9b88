package domain

import "time"

// KeyPrefix namespaces every key the engine writes to the cache store.
const KeyPrefix = "entrysearch:"

// Engine defaults.
const (
	DefaultWait     = 300 * time.Millisecond
	DefaultPageSize = 50
	DefaultLocale   = "en-US"
)
