package application

import (
	"fmt"

	"go.uber.org/zap"

	notifDomain "github.com/davicafu/tiendalab/internal/notification/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// Dispatcher compone y envía notificaciones a partir de hechos de pedido
// y de factura. El envío es fire-and-forget: un canal de correo caído
// jamás detiene el flujo de eventos, el fallo solo se registra.
type Dispatcher struct {
	sender notifDomain.EmailSender
	log    *zap.Logger
}

func NewDispatcher(sender notifDomain.EmailSender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// NotifyOrderEvent compone la notificación correspondiente a un hecho de
// pedido. Los tipos sin plantilla se ignoran en silencio.
func (d *Dispatcher) NotifyOrderEvent(eventType string, fact sharedEvents.OrderFact) {
	var n notifDomain.Notification
	n.To = fact.CustomerEmail

	switch eventType {
	case "ORDER_CREATED":
		n.Subject = fmt.Sprintf("Confirmación de pedido - %s", fact.OrderNumber)
		n.Body = orderCreatedBody(fact)
	case "ORDER_CONFIRMED":
		n.Subject = fmt.Sprintf("Pedido confirmado - %s", fact.OrderNumber)
		n.Body = "Tu pedido ha sido confirmado y está en preparación."
	case "ORDER_SHIPPED":
		n.Subject = fmt.Sprintf("Pedido enviado - %s", fact.OrderNumber)
		n.Body = "Tu pedido ha sido enviado y llegará pronto."
	case "ORDER_DELIVERED":
		n.Subject = fmt.Sprintf("Pedido entregado - %s", fact.OrderNumber)
		n.Body = "Tu pedido ha sido entregado. ¡Gracias por tu compra!"
	case "ORDER_CANCELLED":
		n.Subject = fmt.Sprintf("Pedido cancelado - %s", fact.OrderNumber)
		n.Body = "Tu pedido ha sido cancelado."
	default:
		d.log.Debug("No notification template for event type", zap.String("event_type", eventType))
		return
	}

	d.dispatch(n, eventType, fact.OrderNumber)
}

// NotifyInvoiceEvent compone la notificación de un hecho de facturación.
func (d *Dispatcher) NotifyInvoiceEvent(eventType string, fact sharedEvents.InvoiceFact) {
	if eventType != "INVOICE_CREATED" {
		d.log.Debug("No notification template for event type", zap.String("event_type", eventType))
		return
	}

	n := notifDomain.Notification{
		To:      fact.CustomerEmail,
		Subject: fmt.Sprintf("Factura %s - pedido %s", fact.InvoiceNumber, fact.OrderNumber),
		Body: fmt.Sprintf(
			"Hola,\n\n"+
				"Hemos emitido la factura %s de tu pedido %s.\n\n"+
				"Base imponible: %s\nImpuestos: %s\nTotal: %s\n\n"+
				"Fecha de vencimiento: %s\n\n"+
				"El equipo de TiendaLab",
			fact.InvoiceNumber, fact.OrderNumber,
			fact.Subtotal.StringFixed(2), fact.TaxAmount.StringFixed(2), fact.TotalAmount.StringFixed(2),
			fact.DueDate.Format("2006-01-02"),
		),
	}

	d.dispatch(n, eventType, fact.InvoiceNumber)
}

func (d *Dispatcher) dispatch(n notifDomain.Notification, eventType, ref string) {
	if n.To == "" {
		d.log.Warn("Notification skipped",
			zap.String("event_type", eventType),
			zap.String("ref", ref),
			zap.Error(notifDomain.ErrMissingRecipient),
		)
		return
	}

	go func() {
		if err := d.sender.Send(n.To, n.Subject, n.Body); err != nil {
			d.log.Error("❌ Failed to send email",
				zap.String("to", n.To),
				zap.String("event_type", eventType),
				zap.String("ref", ref),
				zap.Error(err),
			)
			return
		}
		d.log.Info("✅ Email sent",
			zap.String("to", n.To),
			zap.String("event_type", eventType),
			zap.String("ref", ref),
		)
	}()
}

func orderCreatedBody(fact sharedEvents.OrderFact) string {
	return fmt.Sprintf(
		"Hola,\n\n"+
			"Hemos recibido tu pedido %s.\n\n"+
			"Importe total: %s\nNúmero de artículos: %d\n\n"+
			"Te mantendremos informado de su evolución.\n\n"+
			"¡Gracias por tu confianza!\n\n"+
			"El equipo de TiendaLab",
		fact.OrderNumber, fact.TotalAmount.StringFixed(2), len(fact.Items),
	)
}
