package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

// Reply texts. They never carry internal error detail.
const (
	msgGreeting         = "Olá! Posso calcular o frete para você. Envie \"frete\" para começar."
	msgAskDestination   = "Para qual CEP vamos enviar? (ex.: 01001-000)"
	msgAskQuantity      = "Quantas unidades serão enviadas?"
	msgHelp             = "Envie \"frete\" para iniciar uma cotação, depois o CEP de destino e a quantidade. Envie \"reiniciar\" a qualquer momento para recomeçar."
	msgReset            = "Tudo certo, começamos de novo. Envie \"frete\" quando quiser."
	msgCancelled        = "Cotação cancelada."
	msgTrackOrder       = "Para rastrear seu pedido, use o código enviado no e-mail de confirmação."
	msgPaymentStatus    = "Para consultar o pagamento, acesse a área \"Meus pedidos\"."
	msgHumanSupport     = "Vou transferir você para um atendente. Aguarde um momento."
	msgStartOver        = "Não entendi em que ponto estávamos. Vamos recomeçar: envie \"frete\"."
	msgTooManyErrors    = "Não consegui entender os dados depois de algumas tentativas. Envie \"frete\" para tentar de novo."
	msgNoOptions        = "Não encontramos opções de entrega para esse CEP."
	msgTemporaryFailure = "Não foi possível calcular o frete agora. Tente novamente em alguns minutos."
)

// correctiveMessage turns a validation failure into a prompt for the same field.
func correctiveMessage(err *freight.ValidationError) string {
	switch err.Field {
	case "destination":
		return "CEP inválido. Envie 8 dígitos, por exemplo 01001-000."
	case "quantity":
		return "Quantidade inválida: " + err.Message + "."
	default:
		return "Dado inválido: " + err.Message + "."
	}
}

// formatResult renders the capped options for a chat reply.
func formatResult(r *freight.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opções de frete para %s (%s kg):\n", formatPostalCode(r.Destination), formatDecimalComma(fmt.Sprintf("%.2f", r.TotalWeight)))
	for i, o := range r.Options {
		fmt.Fprintf(&b, "%d. %s %s: R$ %s, %d dia(s) útil(eis)\n",
			i+1, o.CarrierName, o.ServiceName, formatDecimalComma(o.Price.StringFixed(2)), o.DeliveryDays)
	}
	fmt.Fprintf(&b, "Mais barata: %s %s. Mais rápida: %s %s.",
		r.Cheapest.CarrierName, r.Cheapest.ServiceName, r.Fastest.CarrierName, r.Fastest.ServiceName)
	return b.String()
}

func formatPostalCode(digits string) string {
	if len(digits) != freight.PostalCodeLength {
		return digits
	}
	return digits[:5] + "-" + digits[5:]
}

func formatDecimalComma(s string) string {
	return strings.Replace(s, ".", ",", 1)
}
