package phonebook

import (
	"strings"

	"github.com/hausnetz/fonwatch/internal/logger"
	"github.com/nyaruka/phonenumbers"
)

// RegionProvider supplies the default region hint used when parsing
// nationally formatted numbers. Region() may return "" when no hint
// is available.
type RegionProvider interface {
	Region() string
}

// StaticRegion is a RegionProvider with a fixed region code.
type StaticRegion string

func (s StaticRegion) Region() string { return string(s) }

// Normalize converts a raw phone number to its E.164 representation using
// region as the parsing hint. Anything that does not parse as a valid
// number is returned unchanged so it can still be indexed and matched
// verbatim. Normalize never fails.
func Normalize(raw, region string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		logger.DebugObj("number did not parse, keeping raw form", "number_parse", map[string]any{
			"raw":    raw,
			"region": region,
			"error":  err.Error(),
		})
		return raw
	}
	if !phonenumbers.IsValidNumber(num) {
		return raw
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
