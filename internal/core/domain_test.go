package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseBucketType(t *testing.T) {
	for _, bt := range AllBucketTypes() {
		got, err := ParseBucketType(string(bt))
		if err != nil {
			t.Errorf("ParseBucketType(%q) unexpected error: %v", bt, err)
		}
		if got != bt {
			t.Errorf("ParseBucketType(%q) = %q, want %q", bt, got, bt)
		}
	}

	if _, err := ParseBucketType("vacation"); !errors.Is(err, ErrBucketNotFound) {
		t.Errorf("ParseBucketType(vacation) error = %v, want ErrBucketNotFound", err)
	}
}

func TestValidateDates(t *testing.T) {
	d0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d25 := d0.AddDate(0, 0, 25)
	d30 := d0.AddDate(0, 0, 30)

	tests := []struct {
		name                string
		start, cutoff, end  time.Time
		wantErr             bool
	}{
		{"valid ordering", d0, d25, d30, false},
		{"cutoff equals end", d0, d30, d30, false},
		{"cutoff after end", d0, d30.AddDate(0, 0, 1), d30, true},
		{"start equals cutoff", d0, d0, d30, true},
		{"zero start", time.Time{}, d25, d30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDates(tt.start, tt.cutoff, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDates() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCycleRawResultAndDeficit(t *testing.T) {
	c := Cycle{
		EffectiveBudget: Money{Cents: 100_000},
		TotalSpent:      Money{Cents: 65_000},
	}
	if got := c.RawResult(); got != 35_000 {
		t.Errorf("RawResult() = %d, want 35000", got)
	}
	if got := c.CurrentDeficit(); got.Cents != 0 {
		t.Errorf("CurrentDeficit() = %d, want 0", got.Cents)
	}

	c.TotalSpent = Money{Cents: 120_000}
	if got := c.CurrentDeficit(); got.Cents != 20_000 {
		t.Errorf("CurrentDeficit() = %d, want 20000", got.Cents)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 100}).Validate(); err != nil {
		t.Errorf("Validate(100) unexpected error: %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Validate(0) error = %v, want ErrInvalidAmount", err)
	}
	if err := (Money{Cents: -5}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Validate(-5) error = %v, want ErrInvalidAmount", err)
	}
}

func TestNewCycleOverview(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Cycle{
		ID:              "c1",
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 29),
		EffectiveBudget: Money{Cents: 100_000},
		TotalSpent:      Money{Cents: 40_000},
	}

	ov := NewCycleOverview(c, start.AddDate(0, 0, 9))
	if ov.DaysTotal != 30 {
		t.Errorf("DaysTotal = %d, want 30", ov.DaysTotal)
	}
	if ov.DaysElapsed != 10 {
		t.Errorf("DaysElapsed = %d, want 10", ov.DaysElapsed)
	}
	if ov.Remaining.Cents != 60_000 {
		t.Errorf("Remaining = %d, want 60000", ov.Remaining.Cents)
	}
	if ov.OverBudget {
		t.Error("OverBudget = true, want false")
	}
}
