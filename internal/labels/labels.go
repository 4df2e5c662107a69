// Package labels maps stored statuses to the Swedish text the app displays.
package labels

var bookingLabels = map[string]string{
	"confirmed": "Bekräftad",
	"pending":   "Väntande",
	"cancelled": "Avbokad",
	"completed": "Genomförd",
	"no_show":   "Uteblev",
}

var dailyAccessLabels = map[string]string{
	"pending":             "Väntar på aktivering",
	"active":              "Aktiv",
	"pending_removal":     "Tas bort",
	"pending_replacement": "Byts ut",
	"removed":             "Borttagen",
}

var membershipLabels = map[string]string{
	"active":     "Aktivt",
	"cancelling": "Avslutas",
	"past_due":   "Betalning misslyckades",
	"inactive":   "Inaktivt",
}

func lookup(m map[string]string, status string) string {
	if l, ok := m[status]; ok {
		return l
	}
	return status
}

// Booking returns the label for a booking status.
func Booking(status string) string { return lookup(bookingLabels, status) }

// DailyAccess returns the label for a selected gym status.
func DailyAccess(status string) string { return lookup(dailyAccessLabels, status) }

// Membership returns the label for a derived membership status.
func Membership(status string) string { return lookup(membershipLabels, status) }
