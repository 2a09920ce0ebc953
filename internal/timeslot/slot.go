package timeslot

// Slot is one of the three fixed daily testing windows.
type Slot string

const (
	SlotMorning   Slot = "MORNING"
	SlotNoon      Slot = "NOON"
	SlotAfternoon Slot = "AFTERNOON"
)

// All returns the slots in chronological order.
func All() []Slot {
	return []Slot{SlotMorning, SlotNoon, SlotAfternoon}
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	switch s {
	case SlotMorning, SlotNoon, SlotAfternoon:
		return true
	}
	return false
}

// Window returns the inclusive wall-clock hour range of the slot.
func (s Slot) Window() (startHour, endHour int) {
	switch s {
	case SlotMorning:
		return 6, 11
	case SlotNoon:
		return 12, 12
	case SlotAfternoon:
		return 13, 18
	}
	return 0, -1
}

// FiringTime returns the fixed daily firing time for the slot.
// Mid-window times so a fixed clock trigger always lands inside the
// slot's validity window.
func (s Slot) FiringTime() (hour, minute int) {
	switch s {
	case SlotMorning:
		return 9, 0
	case SlotNoon:
		return 12, 0
	case SlotAfternoon:
		return 15, 0
	}
	return 0, 0
}

// Classify maps a wall-clock hour to its slot. The second return is
// false for hours outside all testing windows (19:00-05:59).
func Classify(hour int) (Slot, bool) {
	switch {
	case hour >= 6 && hour <= 11:
		return SlotMorning, true
	case hour == 12:
		return SlotNoon, true
	case hour >= 13 && hour <= 18:
		return SlotAfternoon, true
	}
	return "", false
}
