package models

// CacheStats describes the contents of a market data cache.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
}
