package booking

import (
	"fmt"
	"time"
)

var ptMonths = [...]string{
	"janeiro",
	"fevereiro",
	"março",
	"abril",
	"maio",
	"junho",
	"julho",
	"agosto",
	"setembro",
	"outubro",
	"novembro",
	"dezembro",
}

// FormatDatePt renders a slot time the way notifications expect it,
// e.g. "dia 01 de junho, às 14:00h".
func FormatDatePt(t time.Time) string {
	return fmt.Sprintf("dia %02d de %s, às %d:%02dh",
		t.Day(), ptMonths[t.Month()-1], t.Hour(), t.Minute())
}
