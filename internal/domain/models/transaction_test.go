package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortByTimestampOrders(t *testing.T) {
	base := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	txs := []*Transaction{
		{TransactionID: "c", Timestamp: base.Add(2 * time.Minute)},
		{TransactionID: "a", Timestamp: base},
		{TransactionID: "b", Timestamp: base.Add(time.Minute)},
	}
	SortByTimestamp(txs)
	assert.Equal(t, "a", txs[0].TransactionID)
	assert.Equal(t, "b", txs[1].TransactionID)
	assert.Equal(t, "c", txs[2].TransactionID)
}

func TestSortByTimestampStableOnTies(t *testing.T) {
	base := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	txs := []*Transaction{
		{TransactionID: "first", Timestamp: base},
		{TransactionID: "second", Timestamp: base},
		{TransactionID: "third", Timestamp: base},
	}
	SortByTimestamp(txs)
	assert.Equal(t, "first", txs[0].TransactionID)
	assert.Equal(t, "second", txs[1].TransactionID)
	assert.Equal(t, "third", txs[2].TransactionID)
}
