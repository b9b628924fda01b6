package email

import (
	"gopkg.in/gomail.v2"

	notifDomain "github.com/davicafu/tiendalab/internal/notification/domain"
)

// GomailSender entrega correos vía SMTP. Abre y cierra la conexión por
// envío: el volumen de notificaciones no justifica mantener un daemon
// de conexión viva.
type GomailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewGomailSender(host string, port int, username, password, from string) *GomailSender {
	return &GomailSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

var _ notifDomain.EmailSender = (*GomailSender)(nil)

func (s *GomailSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}
