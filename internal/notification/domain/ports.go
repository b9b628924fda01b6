package domain

import "errors"

var ErrMissingRecipient = errors.New("notification has no recipient address")

// EmailSender es el puerto de salida hacia el canal de correo. Las
// implementaciones no reintentan: el despachador decide qué hacer con
// los fallos (registrarlos, nunca propagarlos al flujo de eventos).
type EmailSender interface {
	Send(to, subject, body string) error
}

// Notification es el mensaje ya compuesto, independiente del canal.
type Notification struct {
	To      string
	Subject string
	Body    string
}
