package public

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/core"
)

// osiContract is a parsed OCC/OSI option symbol such as AAPL250117C00150000
type osiContract struct {
	Root       string
	Expiration time.Time
	Type       core.OptionType
	Strike     float64
}

// parseOSI parses the trailing 15 characters (YYMMDD, C/P, strike × 1000
// zero-padded to 8 digits); everything before them is the root, with any
// padding spaces trimmed.
func parseOSI(symbol string) (osiContract, error) {
	s := strings.TrimSpace(symbol)
	if len(s) < 16 {
		return osiContract{}, fmt.Errorf("osi symbol too short: %q", symbol)
	}
	tail := s[len(s)-15:]

	exp, err := time.Parse("060102", tail[:6])
	if err != nil {
		return osiContract{}, fmt.Errorf("osi expiration in %q: %w", symbol, err)
	}

	var t core.OptionType
	switch tail[6] {
	case 'C':
		t = core.OptionCall
	case 'P':
		t = core.OptionPut
	default:
		return osiContract{}, fmt.Errorf("osi right in %q: %c", symbol, tail[6])
	}

	milli, err := strconv.ParseInt(tail[7:], 10, 64)
	if err != nil {
		return osiContract{}, fmt.Errorf("osi strike in %q: %w", symbol, err)
	}

	return osiContract{
		Root:       strings.TrimSpace(s[:len(s)-15]),
		Expiration: exp,
		Type:       t,
		Strike:     float64(milli) / 1000,
	}, nil
}
