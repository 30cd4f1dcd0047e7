package marketplace

import (
	"fmt"
	"strings"

	"github.com/sellsync/backend/internal/domain/order"
)

// statusTables maps each marketplace's status vocabulary onto the canonical
// order lifecycle. Unknown tokens normalize to PENDING so an unrecognized
// state never triggers inventory or automation side effects reserved for
// later lifecycle states.
var statusTables = map[Code]map[string]order.Status{
	CodeShopee: {
		"UNPAID":            order.StatusPending,
		"READY_TO_SHIP":     order.StatusConfirmed,
		"TO_SHIP":           order.StatusConfirmed,
		"PROCESSED":         order.StatusProcessing,
		"SHIPPED":           order.StatusShipped,
		"TO_CONFIRM_RECEIVE": order.StatusShipped,
		"COMPLETED":         order.StatusDelivered,
		"CANCELLED":         order.StatusCancelled,
		"IN_CANCEL":         order.StatusCancelled,
		"TO_RETURN":         order.StatusRefunded,
	},
	CodeLazada: {
		"UNPAID":             order.StatusPending,
		"PENDING":            order.StatusConfirmed,
		"PACKED":             order.StatusProcessing,
		"READY_TO_SHIP":      order.StatusProcessing,
		"SHIPPED":            order.StatusShipped,
		"DELIVERED":          order.StatusDelivered,
		"CANCELED":           order.StatusCancelled,
		"RETURNED":           order.StatusRefunded,
		"FAILED_DELIVERY":    order.StatusCancelled,
	},
	CodeTikTok: {
		"UNPAID":           order.StatusPending,
		"AWAITING_SHIPMENT": order.StatusConfirmed,
		"AWAITING_COLLECTION": order.StatusProcessing,
		"IN_TRANSIT":       order.StatusShipped,
		"DELIVERED":        order.StatusDelivered,
		"COMPLETED":        order.StatusDelivered,
		"CANCELLED":        order.StatusCancelled,
	},
	CodeAmazon: {
		"PENDING":          order.StatusPending,
		"UNSHIPPED":        order.StatusConfirmed,
		"PARTIALLYSHIPPED": order.StatusProcessing,
		"SHIPPED":          order.StatusShipped,
		"DELIVERED":        order.StatusDelivered,
		"CANCELED":         order.StatusCancelled,
		"REFUNDED":         order.StatusRefunded,
	},
	CodeEbay: {
		"NOT_STARTED":        order.StatusPending,
		"PAID":               order.StatusConfirmed,
		"IN_PROGRESS":        order.StatusProcessing,
		"SHIPPED":            order.StatusShipped,
		"FULFILLED":          order.StatusDelivered,
		"CANCELLED":          order.StatusCancelled,
		"REFUNDED":           order.StatusRefunded,
	},
}

func init() {
	// The table is static configuration; fail fast at load if it drifts.
	if err := validateStatusTables(); err != nil {
		panic(err)
	}
}

// validateStatusTables checks the normalization table for completeness:
// every supported marketplace has a table and every mapped value is a valid
// canonical status.
func validateStatusTables() error {
	for _, code := range AllCodes {
		table, ok := statusTables[code]
		if !ok {
			return fmt.Errorf("marketplace: no status table for %s", code)
		}
		if len(table) == 0 {
			return fmt.Errorf("marketplace: empty status table for %s", code)
		}
		for token, status := range table {
			if !status.IsValid() {
				return fmt.Errorf("marketplace: %s token %q maps to invalid status %q", code, token, status)
			}
		}
	}
	return nil
}

// NormalizeStatus maps a marketplace status token to the canonical enum.
// Tokens are matched case-insensitively. Unknown tokens and unknown
// marketplaces return PENDING (see table comment for the policy).
func NormalizeStatus(code Code, token string) order.Status {
	table, ok := statusTables[code]
	if !ok {
		return order.StatusPending
	}
	if status, ok := table[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return status
	}
	return order.StatusPending
}
