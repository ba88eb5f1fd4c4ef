package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/felixgeelhaar/freight-agent/domain/freight"
)

var postalCodePattern = regexp.MustCompile(`(?:^|\D)(\d{5})-?(\d{3})(?:\D|$)`)

// Default keyword sets. Phrases are matched on word boundaries after folding.
var (
	DefaultResetKeywords = []string{
		"reiniciar", "recomecar", "comecar de novo", "resetar", "voltar ao inicio",
		"reset", "restart", "start over",
	}
	DefaultCancelKeywords = []string{
		"cancelar", "cancela", "desistir", "parar", "sair",
		"cancel", "stop", "quit",
	}
	DefaultHelpKeywords = []string{
		"ajuda", "ajudar", "como funciona", "opcoes",
		"help",
	}
	DefaultFreightKeywords = []string{
		"frete", "fretes", "cotacao", "cotar", "orcamento", "envio", "enviar",
		"entrega", "quanto custa", "calcular frete",
		"freight", "shipping", "quote",
	}
	DefaultTrackingKeywords = []string{
		"rastrear", "rastreio", "rastreamento", "onde esta meu pedido", "status do pedido",
		"track", "tracking",
	}
	DefaultPaymentKeywords = []string{
		"pagamento", "pagar", "boleto", "pix", "fatura", "cobranca",
		"payment", "invoice",
	}
	DefaultHumanKeywords = []string{
		"atendente", "humano", "falar com alguem", "falar com uma pessoa", "suporte",
		"human", "agent", "support",
	}
)

// Classifier maps text to intents with fixed keyword and pattern rules.
// It is safe for concurrent use.
type Classifier struct {
	keywords    map[Intent][]string
	maxQuantity int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithKeywords replaces the keyword set for a keyword-driven intent.
func WithKeywords(i Intent, keywords []string) Option {
	return func(c *Classifier) {
		c.keywords[i] = foldAll(keywords)
	}
}

// WithMaxQuantity sets the upper bound for bare integer quantities.
func WithMaxQuantity(max int) Option {
	return func(c *Classifier) {
		if max > 0 {
			c.maxQuantity = max
		}
	}
}

// NewClassifier creates a classifier with the default pt-BR and English keywords.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		keywords: map[Intent][]string{
			Reset:         foldAll(DefaultResetKeywords),
			Cancel:        foldAll(DefaultCancelKeywords),
			Help:          foldAll(DefaultHelpKeywords),
			FreightQuery:  foldAll(DefaultFreightKeywords),
			TrackOrder:    foldAll(DefaultTrackingKeywords),
			PaymentStatus: foldAll(DefaultPaymentKeywords),
			HumanSupport:  foldAll(DefaultHumanKeywords),
		},
		maxQuantity: freight.DefaultMaxQuantity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the first matching intent. Commands win over structured
// data, and structured data wins over topic keywords.
func (c *Classifier) Classify(text string) Result {
	m := c.prepare(text)

	for _, i := range []Intent{Reset, Cancel, Help} {
		if m.hasAny(c.keywords[i]) {
			return Result{Intent: i, Confidence: ConfidenceExact}
		}
	}

	if m.postalCode != "" {
		return Result{
			Intent:     ProvideDestination,
			Confidence: ConfidenceExact,
			Extracted:  Extracted{Destination: m.postalCode},
		}
	}
	if m.quantity > 0 {
		return Result{
			Intent:     ProvideQuantity,
			Confidence: ConfidenceExact,
			Extracted:  Extracted{Quantity: m.quantity},
		}
	}

	if topics := c.topicSignals(m); len(topics) > 0 {
		return Result{Intent: topics[0].Intent, Confidence: topics[0].Confidence}
	}

	return Result{Intent: Unknown, Confidence: ConfidenceNone}
}

// Signals evaluates the structured and topic rules without short-circuiting
// and returns every one that fired, in evaluation order.
func (c *Classifier) Signals(text string) []Signal {
	m := c.prepare(text)

	var signals []Signal
	if m.postalCode != "" {
		signals = append(signals, Signal{Intent: ProvideDestination, Confidence: ConfidenceExact})
	}
	if m.quantity > 0 {
		signals = append(signals, Signal{Intent: ProvideQuantity, Confidence: ConfidenceExact})
	}
	return append(signals, c.topicSignals(m)...)
}

// HasMultipleIntents reports whether two or more rules fired for text.
func (c *Classifier) HasMultipleIntents(text string) bool {
	return len(c.Signals(text)) >= 2
}

func (c *Classifier) topicSignals(m message) []Signal {
	rules := []Signal{
		{FreightQuery, ConfidenceFreight},
		{TrackOrder, ConfidenceTracking},
		{PaymentStatus, ConfidencePayment},
		{HumanSupport, ConfidenceHuman},
	}
	var fired []Signal
	for _, r := range rules {
		if m.hasAny(c.keywords[r.Intent]) {
			fired = append(fired, r)
		}
	}
	return fired
}

// message is the folded view of one input.
type message struct {
	// words is the space-joined word sequence padded with a leading and
	// trailing space.
	words      string
	postalCode string
	quantity   int
}

func (m message) hasAny(phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(m.words, " "+p+" ") {
			return true
		}
	}
	return false
}

func (c *Classifier) prepare(text string) message {
	folded := fold(text)

	var m message
	m.words = " " + strings.Join(strings.FieldsFunc(folded, isWordSeparator), " ") + " "

	rest := folded
	if match := postalCodePattern.FindStringSubmatchIndex(folded); match != nil {
		m.postalCode = folded[match[2]:match[3]] + folded[match[4]:match[5]]
		rest = folded[:match[0]] + " " + folded[match[1]:]
	}
	m.quantity = c.bareQuantity(rest)
	return m
}

// bareQuantity returns the first whitespace-delimited integer token within
// bounds, or 0.
func (c *Classifier) bareQuantity(text string) int {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if tok == "" || !isDigits(tok) {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if n >= 1 && n <= c.maxQuantity {
			return n
		}
	}
	return 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// fold lowercases text and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func foldAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, strings.Join(strings.FieldsFunc(fold(p), isWordSeparator), " "))
	}
	return out
}
