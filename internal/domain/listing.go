package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawListing is a provider listing exactly as cached upstream: most fields
// are optional and numeric fields may arrive as numbers, numeric strings, or
// display-formatted strings like "$350,000".
type RawListing struct {
	ID               string `json:"id,omitempty"`
	HomeID           string `json:"homeId,omitempty"`
	Price            any    `json:"price,omitempty"`
	UnformattedPrice any    `json:"unformattedPrice,omitempty"`
	Beds             any    `json:"beds,omitempty"`
	Baths            any    `json:"baths,omitempty"`
	LivingArea       any    `json:"livingArea,omitempty"`
	Area             any    `json:"area,omitempty"`
	YearBuilt        any    `json:"yearBuilt,omitempty"`
	LotSize          any    `json:"lotSize,omitempty"`
	WalkScore        any    `json:"walkScore,omitempty"`
	HomeType         string `json:"homeType,omitempty"`
	City             string `json:"city,omitempty"`
	Address          string `json:"address,omitempty"`
	ImgSrc           string `json:"imgSrc,omitempty"`
	DetailURL        string `json:"detailUrl,omitempty"`
}

// Listing is the normalized internal record. Optional numerics are pointers;
// nil means the provider did not supply a usable value. Payload retains the
// original provider JSON for API responses.
type Listing struct {
	ID        string
	HomeID    string
	Price     *float64
	Beds      *float64
	Baths     *float64
	Area      *float64
	YearBuilt *float64
	LotSize   *float64
	WalkScore *float64
	HomeType  string
	City      string
	Payload   json.RawMessage
}

// Normalize maps a raw provider listing to the internal record. It is total:
// unparseable or missing values degrade to nil rather than failing.
func (r *RawListing) Normalize() Listing {
	l := Listing{
		HomeID:   r.HomeID,
		HomeType: r.HomeType,
		City:     r.City,
	}

	// Stable identity: provider listing id first, secondary homeId as fallback.
	l.ID = r.ID
	if l.ID == "" {
		l.ID = r.HomeID
	}

	// Price prefers the unformatted numeric field over the display string.
	if v, ok := coercePrice(r.UnformattedPrice); ok {
		l.Price = &v
	} else if v, ok := coercePrice(r.Price); ok {
		l.Price = &v
	}

	l.Beds = coercePtr(r.Beds)
	l.Baths = coercePtr(r.Baths)

	// Living area prefers livingArea over the legacy area field.
	if v, ok := coerceFloat(r.LivingArea); ok {
		l.Area = &v
	} else if v, ok := coerceFloat(r.Area); ok {
		l.Area = &v
	}

	l.YearBuilt = coercePtr(r.YearBuilt)
	l.LotSize = coercePtr(r.LotSize)
	l.WalkScore = coercePtr(r.WalkScore)

	return l
}

// ParseListing decodes provider JSON into a normalized Listing, retaining the
// original payload.
func ParseListing(data []byte) (Listing, error) {
	var raw RawListing
	if err := json.Unmarshal(data, &raw); err != nil {
		return Listing{}, err
	}
	l := raw.Normalize()
	l.Payload = json.RawMessage(data)
	return l, nil
}

func coercePtr(v any) *float64 {
	if f, ok := coerceFloat(v); ok {
		return &f
	}
	return nil
}

// coerceFloat converts a provider value to float64. Strings are parsed after
// stripping everything but digits and the decimal point; unparsable input
// reports ok=false.
func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		cleaned := stripNonNumeric(t, true)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coercePrice is coerceFloat with the price rule: formatted strings drop all
// non-digit characters, decimal point included ("$350,000" -> 350000).
func coercePrice(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		cleaned := stripNonNumeric(s, false)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return coerceFloat(v)
}

func stripNonNumeric(s string, keepDot bool) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' || (keepDot && c == '.') {
			b.WriteRune(c)
		}
	}
	return b.String()
}
