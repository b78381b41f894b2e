package entity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Invoice is one stored row of the faktury table. JSON carries the raw
// json_data payload as written by the OCR webhook.
type Invoice struct {
	ID   int64
	JSON []byte
}

// Fields is the flattened view of an invoice payload. Every field has a
// zero-value default; extraction never fails.
type Fields struct {
	Seller    string
	Buyer     string
	Number    string
	Currency  string
	IssueDate string
	DueDate   string
	Net       float64
	VAT       float64
	Gross     float64
}

// ExtractFields pulls the known fields out of a raw payload. Unparsable
// JSON or missing/mistyped fields yield defaults, not errors, so a
// single bad row can never abort a listing or export.
func (inv *Invoice) ExtractFields() Fields {
	return ExtractFields(inv.JSON)
}

func ExtractFields(raw []byte) Fields {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Fields{}
	}
	return Fields{
		Seller:    nestedString(doc, "sprzedawca", "nazwa"),
		Buyer:     nestedString(doc, "nabywca", "nazwa"),
		Number:    stringField(doc, "numer_faktury"),
		Currency:  stringField(doc, "waluta"),
		IssueDate: nestedString(doc, "daty", "data_wystawienia"),
		DueDate:   nestedString(doc, "daty", "termin_platnosci"),
		Net:       numberField(doc, "suma_netto"),
		VAT:       numberField(doc, "suma_vat"),
		Gross:     numberField(doc, "suma_brutto"),
	}
}

// SetPayloadField sets a dot-separated path inside a raw payload,
// creating intermediate objects as needed, and returns the re-encoded
// document. An unparsable payload starts over from an empty object.
func SetPayloadField(raw []byte, path string, value any) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		doc = map[string]any{}
	}

	keys := strings.Split(path, ".")
	ref := doc
	for _, k := range keys[:len(keys)-1] {
		next, ok := ref[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			ref[k] = next
		}
		ref = next
	}
	ref[keys[len(keys)-1]] = value

	return json.Marshal(doc)
}

func stringField(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func nestedString(doc map[string]any, outer, inner string) string {
	if m, ok := doc[outer].(map[string]any); ok {
		return stringField(m, inner)
	}
	return ""
}

// numberField accepts both JSON numbers and numeric strings, since the
// OCR service is not consistent about what it sends for the totals.
func numberField(doc map[string]any, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}
