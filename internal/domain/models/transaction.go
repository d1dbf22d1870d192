package models

import (
	"time"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Transaction is an immutable, append-only record of a single card transaction.
// Location is nil when the coordinates were never captured; derived distance
// features treat that as an explicit missing-input sentinel, not an error.
type Transaction struct {
	TransactionID    string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	Amount           float64   `json:"amount"`
	MerchantName     string    `json:"merchant_name"`
	MerchantCategory string    `json:"merchant_category"`
	Location         *GeoPoint `json:"location,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Country          string    `json:"country,omitempty"`
	CardLast4        string    `json:"card_last4,omitempty"`
}

// SortByTimestamp orders a user's transactions ascending by timestamp.
// Equal timestamps keep their relative order so re-sorting an already
// ordered history is a no-op.
func SortByTimestamp(txs []*Transaction) {
	// insertion sort keeps the common already-sorted case O(n)
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j].Timestamp.Before(txs[j-1].Timestamp); j-- {
			txs[j], txs[j-1] = txs[j-1], txs[j]
		}
	}
}
