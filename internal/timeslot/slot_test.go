package timeslot

import (
	"testing"
	"time"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		slot Slot
		ok   bool
	}{
		{0, "", false},
		{5, "", false},
		{6, SlotMorning, true},
		{9, SlotMorning, true},
		{11, SlotMorning, true},
		{12, SlotNoon, true},
		{13, SlotAfternoon, true},
		{16, SlotAfternoon, true},
		{18, SlotAfternoon, true},
		{19, "", false},
		{23, "", false},
	}
	for _, tc := range cases {
		slot, ok := Classify(tc.hour)
		if ok != tc.ok || slot != tc.slot {
			t.Fatalf("Classify(%d) = (%q, %v), want (%q, %v)", tc.hour, slot, ok, tc.slot, tc.ok)
		}
	}
}

func TestClassifyExhaustive(t *testing.T) {
	for h := 0; h < 24; h++ {
		slot, ok := Classify(h)
		wantMorning := h >= 6 && h <= 11
		wantNoon := h == 12
		wantAfternoon := h >= 13 && h <= 18
		if (slot == SlotMorning) != wantMorning {
			t.Fatalf("hour %d: morning mismatch", h)
		}
		if (slot == SlotNoon) != wantNoon {
			t.Fatalf("hour %d: noon mismatch", h)
		}
		if (slot == SlotAfternoon) != wantAfternoon {
			t.Fatalf("hour %d: afternoon mismatch", h)
		}
		if ok != (wantMorning || wantNoon || wantAfternoon) {
			t.Fatalf("hour %d: ok mismatch", h)
		}
	}
}

func TestFiringTimeInsideWindow(t *testing.T) {
	for _, slot := range All() {
		hour, minute := slot.FiringTime()
		start, end := slot.Window()
		if hour < start || hour > end {
			t.Fatalf("%s fires at %02d:%02d outside window [%d,%d]", slot, hour, minute, start, end)
		}
		got, ok := Classify(hour)
		if !ok || got != slot {
			t.Fatalf("%s firing hour %d classifies to (%q, %v)", slot, hour, got, ok)
		}
	}
}

func TestClassifyInZone(t *testing.T) {
	// 14:00 UTC is 09:00 in New York during winter.
	instant := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

	slot, ok, err := ClassifyInZone(instant, "America/New_York")
	if err != nil {
		t.Fatalf("ClassifyInZone: %v", err)
	}
	if !ok || slot != SlotMorning {
		t.Fatalf("expected MORNING, got (%q, %v)", slot, ok)
	}

	if _, _, err := ClassifyInZone(instant, "Not/AZone"); err != ErrUnknownTimezone {
		t.Fatalf("expected ErrUnknownTimezone, got %v", err)
	}
	if _, _, err := ClassifyInZone(instant, ""); err != ErrUnknownTimezone {
		t.Fatalf("expected ErrUnknownTimezone for empty zone, got %v", err)
	}
}

func TestResolverSourceChain(t *testing.T) {
	r := NewResolver("Asia/Manila", nil)
	instant := time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC) // 09:30 in Manila

	got := r.ClassifyAt(instant, "Asia/Manila")
	if got.Source != SourceClient || !got.HasSlot || got.Slot != SlotMorning {
		t.Fatalf("client zone: got %+v", got)
	}

	got = r.ClassifyAt(instant, "")
	if got.Source != SourceApp || got.Slot != SlotMorning {
		t.Fatalf("app zone fallback: got %+v", got)
	}

	got = r.ClassifyAt(instant, "Bad/Zone")
	if got.Source != SourceApp {
		t.Fatalf("bad client zone should fall back to app zone, got %+v", got)
	}

	r = NewResolver("Also/Bad", nil)
	got = r.ClassifyAt(instant, "Still/Bad")
	if got.Source != SourceUTC {
		t.Fatalf("expected UTC terminal fallback, got %+v", got)
	}
	if got.HasSlot {
		t.Fatalf("01:30 UTC has no slot, got %+v", got)
	}
}
