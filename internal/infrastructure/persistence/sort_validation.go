package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Interpolating an unvalidated column name into ORDER BY is an injection
// vector, so every list query goes through this.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for canonical orders
var OrderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"marketplace":  true,
	"status":       true,
	"total_amount": true,
}

// SyncLogSortFields contains allowed sort fields for stock sync logs
var SyncLogSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"completed_at": true,
	"status":       true,
	"trigger":      true,
	"product_id":   true,
}

// AccountSortFields contains allowed sort fields for marketplace accounts
var AccountSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"marketplace": true,
	"shop_name":   true,
	"status":      true,
}
