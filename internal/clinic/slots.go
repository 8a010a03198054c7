package clinic

// TimeSlots is the fixed catalog of bookable slot labels. Bookings are
// validated against this set at write time, and clients render it as-is.
var TimeSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "02:00 PM", "02:30 PM",
	"03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}

var slotSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(TimeSlots))
	for _, s := range TimeSlots {
		m[s] = struct{}{}
	}
	return m
}()

// IsTimeSlot reports whether s is one of the catalog slot labels.
func IsTimeSlot(s string) bool {
	_, ok := slotSet[s]
	return ok
}
