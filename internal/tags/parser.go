// Package tags implements the control-tag protocol between the generator
// and the shop: a closed set of bracketed directives embedded in free-form
// reply text, stripped from the customer-visible message and dispatched as
// side effects.
package tags

import (
	"regexp"
	"strings"
)

// Kind identifies a registered tag.
type Kind string

const (
	KindAlert          Kind = "ALERT"
	KindCheckStock     Kind = "CHECK_STOCK"
	KindPendingPayment Kind = "PENDING_PAYMENT"
	KindOrderClosed    Kind = "ORDER_CLOSED"
	KindReceipt        Kind = "RECEIPT_UPLOADED"
	KindSendImage      Kind = "SEND_IMAGE"
	KindOutOfStock     Kind = "OUT_OF_STOCK"
	KindTroll          Kind = "TROLL"
)

// Tag is one recognized directive with its typed payload.
type Tag struct {
	Kind Kind

	// ALERT: problem summary. CHECK_STOCK / OUT_OF_STOCK / SEND_IMAGE:
	// item description or query.
	Value string

	// PENDING_PAYMENT and ORDER_CLOSED pipe-delimited payload.
	ItemID   string
	Price    string
	Location string

	Raw string
}

// Result of a parse pass.
type Result struct {
	// Clean is the text with every recognized tag stripped. Unrecognized
	// bracket text is left untouched.
	Clean string
	// Tags holds recognized directives in protocol priority order.
	// SEND_IMAGE may appear multiple times; other kinds at most once.
	Tags []Tag
	// NearMisses is bracket text whose keyword matches a registered tag
	// but whose shape does not (wrong case, malformed payload). It stays
	// in Clean; callers log it.
	NearMisses []string
}

var (
	alertRe      = regexp.MustCompile(`\[ALERT:\s*(.+?)\s*\]`)
	checkStockRe = regexp.MustCompile(`\[CHECK_STOCK:\s*(.+?)\s*\]`)
	pendingRe    = regexp.MustCompile(`\[PENDING_PAYMENT:\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\]`)
	orderRe      = regexp.MustCompile(`\[ORDER_CLOSED:\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\]`)
	receiptRe    = regexp.MustCompile(`\[RECEIPT_UPLOADED\]`)
	sendImageRe  = regexp.MustCompile(`(?i)\[SEND_IMAGE:\s*([^\]]+)\]`)
	oosRe        = regexp.MustCompile(`\[OUT_OF_STOCK:\s*(.+?)\s*\]`)
	trollRe      = regexp.MustCompile(`\[TROLL\]`)

	// Any bracket group that starts like a keyword; used for the
	// near-miss pass after recognized tags are stripped.
	bracketRe = regexp.MustCompile(`\[\s*([A-Za-z_]+)[^\]]*\]`)
)

var registeredKeywords = map[string]bool{
	"ALERT": true, "CHECK_STOCK": true, "PENDING_PAYMENT": true,
	"ORDER_CLOSED": true, "RECEIPT_UPLOADED": true, "SEND_IMAGE": true,
	"OUT_OF_STOCK": true, "TROLL": true,
}

// Parse scans generated text for the registered tag set. Only exact
// patterns are stripped; near-miss bracket text is reported but left in
// the visible text, matching the protocol's documented leak behavior.
func Parse(text string) Result {
	var res Result

	strip1 := func(re *regexp.Regexp, build func(m []string) Tag) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return
		}
		tag := build(m)
		tag.Raw = m[0]
		res.Tags = append(res.Tags, tag)
		text = strings.Replace(text, m[0], "", 1)
	}

	strip1(alertRe, func(m []string) Tag {
		return Tag{Kind: KindAlert, Value: m[1]}
	})
	strip1(checkStockRe, func(m []string) Tag {
		return Tag{Kind: KindCheckStock, Value: strings.TrimSpace(m[1])}
	})
	strip1(pendingRe, func(m []string) Tag {
		return Tag{Kind: KindPendingPayment, ItemID: strings.TrimSpace(m[1]), Price: strings.TrimSpace(m[2]), Location: strings.TrimSpace(m[3])}
	})
	strip1(orderRe, func(m []string) Tag {
		return Tag{Kind: KindOrderClosed, ItemID: strings.TrimSpace(m[1]), Price: strings.TrimSpace(m[2]), Location: strings.TrimSpace(m[3])}
	})
	strip1(receiptRe, func(m []string) Tag {
		return Tag{Kind: KindReceipt}
	})

	for _, m := range sendImageRe.FindAllStringSubmatch(text, -1) {
		res.Tags = append(res.Tags, Tag{Kind: KindSendImage, Value: strings.TrimSpace(m[1]), Raw: m[0]})
	}
	text = sendImageRe.ReplaceAllString(text, "")

	strip1(oosRe, func(m []string) Tag {
		return Tag{Kind: KindOutOfStock, Value: strings.TrimSpace(m[1])}
	})
	strip1(trollRe, func(m []string) Tag {
		return Tag{Kind: KindTroll}
	})

	for _, m := range bracketRe.FindAllStringSubmatch(text, -1) {
		if registeredKeywords[strings.ToUpper(m[1])] {
			res.NearMisses = append(res.NearMisses, m[0])
		}
	}

	res.Clean = strings.TrimSpace(text)
	return res
}

// First returns the first tag of the given kind, if present.
func (r Result) First(kind Kind) (Tag, bool) {
	for _, t := range r.Tags {
		if t.Kind == kind {
			return t, true
		}
	}
	return Tag{}, false
}

// All returns every tag of the given kind in order of appearance.
func (r Result) All(kind Kind) []Tag {
	var out []Tag
	for _, t := range r.Tags {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// StripAll removes every registered tag pattern from text without
// dispatching anything. Used when relaying generator output produced
// outside the normal customer turn (owner guidance replies).
func StripAll(text string) string {
	for _, re := range []*regexp.Regexp{alertRe, checkStockRe, pendingRe, orderRe, receiptRe, sendImageRe, oosRe, trollRe} {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingRe = regexp.MustCompile(`(?m)^#+\s*`)
	linkRe    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// CleanFormatting converts the generator's markdown habits to the
// transport's formatting: **bold** becomes *bold*, headings lose their
// hashes, links collapse to their label.
func CleanFormatting(text string) string {
	text = boldRe.ReplaceAllString(text, "*$1*")
	text = headingRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
