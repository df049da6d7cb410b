// Package scorer rates how likely an email is to be a flight confirmation.
package scorer

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flight-mail-review-go/internal/mailtext"
)

const (
	// Threshold is the minimum score for an email to become a candidate
	Threshold = 30
	// MaxThreshold is the highest value Threshold may ever be raised to
	MaxThreshold = 40
)

// Rule weights
const (
	WeightSchemaMarkup = 50
	WeightKnownSender  = 20
	WeightConfirmation = 15
	WeightFlight       = 10
	WeightMarkers      = 10
)

// Reason texts
const (
	ReasonSchemaMarkup = "Has FlightReservation schema markup"
	ReasonKnownSender  = "Known airline/OTA sender"
	ReasonConfirmation = "Confirmation keyword in subject"
	ReasonFlight       = "Flight keyword in subject"
	reasonMarkerPrefix = "Flight markers: "
)

var airlineDomains = []string{
	"united.com", "aa.com", "delta.com", "southwest.com", "jetblue.com",
	"alaskaair.com", "britishairways.com", "lufthansa.com", "airfrance",
	"klm.com", "emirates.com", "qatarairways.com", "aircanada", "ryanair.com",
	"easyjet.com", "expedia", "booking.com", "kayak", "priceline", "orbitz",
	"travelocity", "hopper", "cheapoair",
}

var confirmationKeywords = []string{
	"confirmation", "confirmed", "itinerary", "booking", "reservation",
	"e-ticket", "eticket", "receipt",
}

var flightKeywords = []string{
	"flight", "airline", "boarding", "departure", "check-in",
}

type marker struct {
	name    string
	pattern *regexp.Regexp
	accept  func(string) bool
}

var markers = []marker{
	{
		name:    "confirmation code",
		pattern: regexp.MustCompile(`\b[A-Z0-9]{6}\b`),
		accept:  hasLetter,
	},
	{
		name:    "flight number",
		pattern: regexp.MustCompile(`\b(?:[A-Z]{2}|[A-Z][0-9]|[0-9][A-Z])\s?[0-9]{1,4}\b`),
	},
	{
		name:    "airport code",
		pattern: regexp.MustCompile(`\b[A-Z]{3}\b`),
	},
}

// Input is the email content the scorer looks at
type Input struct {
	Subject       string
	Sender        string
	HTMLBody      string
	PlainTextBody string
}

// Result is a confidence score with the reasons that produced it
type Result struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score applies every rule to the input. It never fails; an email with no
// signal scores 0 with an empty reason list.
func Score(in Input) Result {
	res := Result{Reasons: []string{}}

	add := func(weight int, reason string) {
		res.Score += weight
		res.Reasons = append(res.Reasons, reason)
	}

	if HasFlightReservationMarkup(in.HTMLBody) {
		add(WeightSchemaMarkup, ReasonSchemaMarkup)
	}

	if IsKnownSender(in.Sender) {
		add(WeightKnownSender, ReasonKnownSender)
	}

	subject := strings.ToLower(in.Subject)
	if containsAny(subject, confirmationKeywords) {
		add(WeightConfirmation, ReasonConfirmation)
	}
	if containsAny(subject, flightKeywords) {
		add(WeightFlight, ReasonFlight)
	}

	text := in.PlainTextBody
	if strings.TrimSpace(text) == "" {
		text = mailtext.HTMLToText(in.HTMLBody)
	}
	if found := MatchMarkers(text); len(found) >= 2 {
		add(WeightMarkers, reasonMarkerPrefix+strings.Join(found, ", "))
	}

	return res
}

// IsCandidate reports whether a score passes the candidate threshold
func IsCandidate(score int) bool {
	return score >= Threshold
}

// HasFlightReservationMarkup detects schema.org FlightReservation data in
// JSON-LD or microdata form
func HasFlightReservationMarkup(html string) bool {
	if !strings.Contains(strings.ToLower(html), "flightreservation") {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return true
	}

	if doc.Find(`[itemtype*="FlightReservation"]`).Length() > 0 {
		return true
	}

	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "FlightReservation") {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsKnownSender reports whether the sender domain belongs to an airline or travel agency
func IsKnownSender(sender string) bool {
	domain := senderDomain(sender)
	if domain == "" {
		return false
	}
	return containsAny(domain, airlineDomains)
}

// MatchMarkers returns the names of the marker patterns found in text, in rule order.
// Unlike the keyword and sender rules, markers match case-sensitively: codes,
// flight numbers and airport codes are recognised only in upper case, so
// ordinary three-letter words do not count as airport codes.
func MatchMarkers(text string) []string {
	var found []string
	for _, m := range markers {
		for _, tok := range m.pattern.FindAllString(text, -1) {
			if m.accept == nil || m.accept(tok) {
				found = append(found, m.name)
				break
			}
		}
	}
	return found
}

func senderDomain(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}

	address := sender
	if parsed, err := mail.ParseAddress(sender); err == nil {
		address = parsed.Address
	}

	address = strings.ToLower(address)
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return strings.Trim(address[i+1:], "> ")
	}
	return address
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
