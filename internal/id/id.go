// Package id issues time-sortable position identifiers.
package id

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string. IDs minted within the same millisecond
// still sort in mint order, so lexicographic order is open order.
func New() string {
	return ulid.Make().String()
}
