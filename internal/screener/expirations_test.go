package screener

import (
	"testing"
	"time"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestIsThirdFriday(t *testing.T) {
	tests := []struct {
		date time.Time
		want bool
	}{
		{d(2026, 11, 20), true},
		{d(2026, 11, 13), false},
		{d(2026, 11, 27), false},
		{d(2026, 12, 18), true},
		{d(2026, 10, 16), true},
		{d(2026, 10, 15), false}, // Thursday
	}

	for _, tc := range tests {
		if got := IsThirdFriday(tc.date); got != tc.want {
			t.Errorf("IsThirdFriday(%s) = %v, want %v", tc.date.Format(time.DateOnly), got, tc.want)
		}
	}
}

func labels(sel []SelectedExpiration) map[string]string {
	out := make(map[string]string, len(sel))
	for _, s := range sel {
		out[s.Date.Format(time.DateOnly)] = s.Label
	}
	return out
}

func TestSelectExpirations_Buckets(t *testing.T) {
	today := d(2026, 10, 19)
	available := []time.Time{
		d(2026, 10, 19), // same day, never selected
		d(2026, 10, 23),
		d(2026, 10, 30),
		d(2026, 11, 6),
		d(2026, 11, 20),
		d(2026, 11, 27),
		d(2026, 12, 18),
	}

	sel := SelectExpirations(available, today, ExpirationFilter{Mode: ModeBuckets, Buckets: DefaultBuckets()})
	want := map[string]string{
		"2026-10-23": LabelCurrentWeek,
		"2026-10-30": LabelNextWeek,
		"2026-11-20": LabelMonthly,
	}
	got := labels(sel)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %q, want %q", k, got[k], v)
		}
	}
	for i := 1; i < len(sel); i++ {
		if !sel[i-1].Date.Before(sel[i].Date) {
			t.Errorf("selection not ascending: %v", sel)
		}
	}
	if sel[0].DTE != 4 {
		t.Errorf("expected DTE 4 for current week, got %d", sel[0].DTE)
	}
}

func TestSelectExpirations_BucketFallbacks(t *testing.T) {
	today := d(2026, 10, 19)
	// only monthlies listed: nothing within the weekly windows
	available := []time.Time{d(2026, 11, 20), d(2026, 12, 18), d(2027, 1, 15)}

	sel := SelectExpirations(available, today, ExpirationFilter{Buckets: DefaultBuckets()})
	got := labels(sel)

	if got["2026-11-20"] != LabelCurrentWeekFallback {
		t.Errorf("expected first expiry as current week fallback, got %v", got)
	}
	if got["2026-12-18"] != LabelNextWeekFallback {
		t.Errorf("expected second expiry as next week fallback, got %v", got)
	}
	// 2026-11-20 (32 DTE) is the only monthly candidate and is already taken
	if len(sel) != 2 {
		t.Errorf("expected no duplicate selections, got %v", got)
	}
}

func TestSelectExpirations_MonthlyProxy(t *testing.T) {
	today := d(2026, 10, 19)
	// no third Friday between 30 and 45 DTE; 11-25 (37 DTE) is nearest the midpoint
	available := []time.Time{d(2026, 10, 23), d(2026, 10, 30), d(2026, 11, 18), d(2026, 11, 25), d(2026, 12, 2)}

	got := labels(SelectExpirations(available, today, ExpirationFilter{Buckets: DefaultBuckets()}))
	if got["2026-11-25"] != LabelMonthlyProxy {
		t.Errorf("expected 2026-11-25 as monthly proxy, got %v", got)
	}
}

func TestSelectExpirations_MonthlyLastResort(t *testing.T) {
	today := d(2026, 10, 19)
	available := []time.Time{d(2026, 10, 23), d(2026, 10, 30), d(2026, 11, 6)}

	got := labels(SelectExpirations(available, today, ExpirationFilter{Buckets: DefaultBuckets()}))
	if got["2026-11-06"] != LabelMonthlyProxy {
		t.Errorf("expected last listed expiry as monthly proxy, got %v", got)
	}
}

func TestSelectExpirations_Empty(t *testing.T) {
	today := d(2026, 10, 19)
	if sel := SelectExpirations(nil, today, ExpirationFilter{Buckets: DefaultBuckets()}); len(sel) != 0 {
		t.Errorf("expected nothing, got %v", sel)
	}
	if sel := SelectExpirations([]time.Time{today}, today, ExpirationFilter{Buckets: DefaultBuckets()}); len(sel) != 0 {
		t.Errorf("same-day expiry must not be selected, got %v", sel)
	}
}

func TestSelectExpirations_Range(t *testing.T) {
	today := d(2026, 10, 19)
	available := []time.Time{d(2026, 10, 19), d(2026, 10, 23), d(2026, 10, 30), d(2026, 11, 20), d(2026, 12, 18)}
	minDTE, maxDTE := 5, 40

	sel := SelectExpirations(available, today, ExpirationFilter{Mode: ModeRange, MinDTE: &minDTE, MaxDTE: &maxDTE})
	if len(sel) != 2 || sel[0].Date != d(2026, 10, 30) || sel[1].Date != d(2026, 11, 20) {
		t.Errorf("unexpected range selection: %v", sel)
	}
	for _, s := range sel {
		if s.Label != LabelRange {
			t.Errorf("expected range label, got %q", s.Label)
		}
	}

	to := d(2026, 10, 31)
	sel = SelectExpirations(available, today, ExpirationFilter{Mode: ModeRange, To: &to})
	if len(sel) != 2 || sel[1].Date != d(2026, 10, 30) {
		t.Errorf("unexpected date-bounded selection: %v", sel)
	}
}

func TestSelectExpirations_List(t *testing.T) {
	today := d(2026, 10, 19)
	dates := []time.Time{
		d(2026, 12, 18),
		time.Date(2026, 11, 20, 16, 0, 0, 0, time.UTC),
		d(2026, 11, 20),
	}

	sel := SelectExpirations([]time.Time{d(2027, 1, 15)}, today, ExpirationFilter{Mode: ModeList, Dates: dates})
	if len(sel) != 2 {
		t.Fatalf("expected duplicates collapsed, got %v", sel)
	}
	if sel[0].Date != d(2026, 11, 20) || sel[0].DTE != 32 || sel[0].Label != LabelList {
		t.Errorf("unexpected first selection: %+v", sel[0])
	}
}
