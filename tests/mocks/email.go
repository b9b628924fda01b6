package mocks

import (
	"errors"
	"sync"

	notifDomain "github.com/davicafu/tiendalab/internal/notification/domain"
)

// SentEmail registra un envío capturado.
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// RecordingEmailSender captura correos en memoria para los tests.
// Con Fail activo, cada envío devuelve error.
type RecordingEmailSender struct {
	Fail bool

	mu   sync.Mutex
	sent []SentEmail
}

var _ notifDomain.EmailSender = (*RecordingEmailSender)(nil)

func NewRecordingEmailSender() *RecordingEmailSender {
	return &RecordingEmailSender{}
}

func (s *RecordingEmailSender) Send(to, subject, body string) error {
	if s.Fail {
		return errors.New("smtp unavailable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent devuelve una copia de los correos capturados.
func (s *RecordingEmailSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEmail, len(s.sent))
	copy(out, s.sent)
	return out
}
