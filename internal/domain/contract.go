// Package domain holds the shared record types the matching engine,
// ledger, batch executor, and HTTP boundary all operate on (spec §3),
// grounded on the teacher-adjacent matching-engine example's own
// domain package (ccyyhlg-lightning-exchange/domain).
package domain

import "fmt"

// DeliveryWindowMillis is the fixed one-hour contract length.
const DeliveryWindowMillis int64 = 3_600_000

// ContractKey identifies a one-hour delivery window. Matching never
// crosses contract keys.
type ContractKey struct {
	DeliveryStart int64
	DeliveryEnd   int64
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%d-%d", k.DeliveryStart, k.DeliveryEnd)
}

// Valid reports whether both endpoints are multiples of the delivery
// window and exactly one window apart (spec §3, §4.4 step 1).
func (k ContractKey) Valid() bool {
	if k.DeliveryStart%DeliveryWindowMillis != 0 {
		return false
	}
	if k.DeliveryEnd%DeliveryWindowMillis != 0 {
		return false
	}
	return k.DeliveryEnd-k.DeliveryStart == DeliveryWindowMillis
}
