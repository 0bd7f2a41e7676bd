package order

import (
	"fmt"
	"net/url"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/errs"
)

const (
	separator   = "---------------------------------"
	entryMarker = "▪️"
)

// Message is the order text handed to the messaging app and the deep link that
// opens it prefilled.
type Message struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

type Formatter struct {
	store *config.Store
}

func NewFormatter(store *config.Store) *Formatter {
	return &Formatter{store: store}
}

// Format builds the order message for c. An empty cart yields ErrEmptyCart and
// nothing else.
func (f *Formatter) Format(c *cart.Cart) (*Message, error) {
	if c.Count() == 0 {
		return nil, errs.New(errs.KindEmptyCart, errs.ErrMsgEmptyCart)
	}

	text := f.Text(c.Entries(), c.Total())
	return &Message{
		Text: text,
		Link: f.Link(text),
	}, nil
}

// Text renders the itemized message. Duplicate entries are listed separately.
func (f *Formatter) Text(entries []cart.Entry, total int64) string {
	cur := f.store.CurrencySymbol

	var b strings.Builder
	fmt.Fprintf(&b, "*PEDIDO WEB - %s* 🛍️\n", f.store.Name)
	b.WriteString(separator + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s (%s%d)\n", entryMarker, e.Name, cur, e.Price)
	}
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "💰 *TOTAL A PAGAR: %s%d*\n", cur, total)
	b.WriteString("\n")
	fmt.Fprintf(&b, "📝 *Métodos de pago preferido:* %s", f.store.PaymentMethods)

	return strings.TrimSpace(b.String())
}

// Link returns https://<host>/<handle>?text=<text>, with text escaped so the
// receiving app decodes it back byte for byte.
func (f *Formatter) Link(text string) string {
	return fmt.Sprintf("https://%s/%s?text=%s",
		f.store.MessagingHost,
		url.PathEscape(f.store.DestinationHandle),
		EncodeComponent(text),
	)
}

// componentReplacer undoes the QueryEscape choices that differ from a
// browser's encodeURIComponent.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use as a query value the way a
// browser's encodeURIComponent does. Spaces become %20 rather than '+'.
func EncodeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
