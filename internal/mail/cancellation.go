package mail

import (
	"fmt"

	"github.com/agendaapp/agenda-api/internal/booking"
	"github.com/agendaapp/agenda-api/internal/mailqueue"
)

const cancellationSubject = "Agendamento cancelado"

// RenderCancellation builds the message sent to a provider when a requester
// cancels an appointment.
func RenderCancellation(m mailqueue.CancellationMail) (to, subject, body string) {
	to = fmt.Sprintf("%s <%s>", m.ProviderName, m.ProviderEmail)
	subject = cancellationSubject
	body = fmt.Sprintf(
		"Olá, %s!\n\nHouve um cancelamento de horário que você deveria conhecer.\n\nO agendamento do %s para %s foi cancelado.\n\nAgora esse horário está novamente disponível para novos agendamentos.\n",
		m.ProviderName,
		m.RequesterName,
		booking.FormatDatePt(m.Date),
	)
	return to, subject, body
}
