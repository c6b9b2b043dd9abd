package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCurrentPriceFallsBackToBasePrice(t *testing.T) {
	item := &Item{BasePrice: decimal.NewFromInt(100)}
	if !item.CurrentPrice().Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected base price 100, got %s", item.CurrentPrice())
	}

	item.CurrentBid = decimal.NewFromInt(150)
	if !item.CurrentPrice().Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected current bid 150, got %s", item.CurrentPrice())
	}
}

func TestOpenForBidding(t *testing.T) {
	now := time.Now()
	item := &Item{Status: ItemStatusActive, EndTime: now.Add(time.Hour)}

	if !item.OpenForBidding(now) {
		t.Error("expected active item before end time to be open")
	}
	if item.OpenForBidding(now.Add(2 * time.Hour)) {
		t.Error("expected item past end time to be closed")
	}

	item.Status = ItemStatusUpcoming
	if item.OpenForBidding(now) {
		t.Error("expected upcoming item to be closed")
	}
}

func TestTerminalStatus(t *testing.T) {
	for _, status := range []string{ItemStatusSold, ItemStatusClosed, ItemStatusExpired} {
		if !TerminalStatus(status) {
			t.Errorf("expected %q to be terminal", status)
		}
	}
	for _, status := range []string{ItemStatusUpcoming, ItemStatusActive} {
		if TerminalStatus(status) {
			t.Errorf("expected %q to not be terminal", status)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Now()
	item := &Item{EndTime: now.Add(30 * time.Minute)}

	if got := item.TimeRemaining(now); got != 30*time.Minute {
		t.Errorf("expected 30m remaining, got %s", got)
	}
	if got := item.TimeRemaining(now.Add(time.Hour)); got != 0 {
		t.Errorf("expected 0 remaining after end, got %s", got)
	}
}
