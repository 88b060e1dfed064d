package alert

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/agendahub/notifier/internal/config"
	"github.com/agendahub/notifier/pkg/logger"
)

// Notifier delivers operator alerts for conditions the process cannot
// recover from on its own.
type Notifier interface {
	SessionTerminated(reason string)
}

type emailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
	log    *logger.Logger
}

// NewFromConfig returns an email notifier when SMTP is configured, otherwise
// a no-op.
func NewFromConfig(cfg config.SMTPConfig, log *logger.Logger) Notifier {
	if cfg.Host == "" {
		return nopNotifier{}
	}
	return &emailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
		log:    log.WithComponent("alert"),
	}
}

func (n *emailNotifier) SessionTerminated(reason string) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", "[notifier] WhatsApp session down")
	m.SetBody("text/plain", fmt.Sprintf(
		"The WhatsApp session terminated at %s.\n\nReason: %s\n\nReminders are paused until the service is restarted and, if needed, the device is re-paired.",
		time.Now().Format(time.RFC3339), reason,
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		n.log.Error(err, "failed to send session alert", "to", n.to)
		return
	}
	n.log.Info("session alert sent", "to", n.to, "reason", reason)
}

type nopNotifier struct{}

func (nopNotifier) SessionTerminated(string) {}

// Nop returns a Notifier that discards alerts.
func Nop() Notifier {
	return nopNotifier{}
}
