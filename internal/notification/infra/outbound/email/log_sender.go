package email

import (
	"go.uber.org/zap"

	notifDomain "github.com/davicafu/tiendalab/internal/notification/domain"
)

// LogSender es el sustituto local de SMTP: escribe el correo en el log.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

var _ notifDomain.EmailSender = (*LogSender)(nil)

func (s *LogSender) Send(to, subject, body string) error {
	s.log.Info("📧 Email (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
