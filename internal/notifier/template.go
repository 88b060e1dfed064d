package notifier

import (
	"fmt"
	"time"

	"github.com/agendahub/notifier/internal/model"
)

// FormatDateTime renders an appointment time the way clients read it in
// Brazil: "05/02/2026 às 14:30".
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006") + " às " + t.Format("15:04")
}

// Render produces the tier-specific message body for a candidate. Pure
// function; the dispatcher calls it right before submitting.
func Render(tier model.Tier, c *model.Candidate) string {
	switch tier {
	case model.TierOneHour:
		return renderOneHour(c)
	case model.TierThirtyMinutes:
		return renderThirtyMinutes(c)
	default:
		return renderConfirmation(c)
	}
}

func renderConfirmation(c *model.Candidate) string {
	return fmt.Sprintf(`✅ *Agendamento Confirmado!* ✅

Olá, *%s*!

Seu agendamento na *%s* foi confirmado:

📅 *Data/Hora:* %s
✂️ *Serviço:* %s
👤 *Profissional:* %s

Você receberá lembretes próximo ao horário! 😊

_Caso precise cancelar ou reagendar, entre em contato conosco._`,
		c.ClientName, c.OrganizationName, FormatDateTime(c.StartTime), c.ServiceName, c.StaffName)
}

func renderOneHour(c *model.Candidate) string {
	return fmt.Sprintf(`⏰ *Lembrete - Falta 1 hora!* ⏰

Olá, *%s*!

Seu agendamento na *%s* está próximo:

📅 *Data/Hora:* %s
✂️ *Serviço:* %s
👤 *Profissional:* %s

⏱️ *Falta apenas 1 hora!*

Já estamos te esperando! 😊`,
		c.ClientName, c.OrganizationName, FormatDateTime(c.StartTime), c.ServiceName, c.StaffName)
}

func renderThirtyMinutes(c *model.Candidate) string {
	return fmt.Sprintf(`🔔 *ATENÇÃO - Faltam 30 minutos!* 🔔

Olá, *%s*!

Seu horário está chegando:

📅 *Data/Hora:* %s
✂️ *Serviço:* %s
👤 *Profissional:* %s

⚡ *Faltam apenas 30 minutos!*

Estamos te aguardando! 🏃‍♂️💨`,
		c.ClientName, FormatDateTime(c.StartTime), c.ServiceName, c.StaffName)
}
