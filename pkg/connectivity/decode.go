package connectivity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lintang-b-s/laneconnectivity/pkg/util"
)

const (
	LANE_SEPARATOR        = "|"
	FROM_TO_SEPARATOR     = ":"
	DESTINATION_SEPARATOR = ","
	LIST_SEPARATOR        = ";"
)

var (
	splitPattern    = regexp.MustCompile(`\p{Zs}*[,:;]\p{Zs}*`)
	optionalPattern = regexp.MustCompile(`^\(\s*([0-9]+)\s*\)$`)
)

// TokenError identifies the token that could not be parsed.
type TokenError struct {
	Token string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("bad token %q", e.Token)
}

func malformed(token, text string) error {
	return util.WrapErrorf(&TokenError{Token: token}, util.ErrMalformedEncoding,
		"cannot decode %q", text)
}

// Decode parses a connectivity tag such as `1:1|2:2,(3)`.
// Destinations may be separated by `,`, `:` or `;`; a parenthesized destination is optional.
// An empty text (absent tag) decodes to an empty map. Trailing empty entries, as in
// `1:1|`, are ignored.
func Decode(text string) (*Map, error) {
	result := NewMap()
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	entries := strings.Split(text, LANE_SEPARATOR)
	for len(entries) > 0 && entries[len(entries)-1] == "" {
		entries = entries[:len(entries)-1]
	}
	for _, entry := range entries {
		fromPart, toPart, ok := strings.Cut(entry, FROM_TO_SEPARATOR)
		if !ok {
			return nil, malformed(entry, text)
		}

		from, err := parseLaneNumber(fromPart)
		if err != nil {
			return nil, malformed(strings.TrimSpace(fromPart), text)
		}

		connections := make(map[int]bool)
		for _, tok := range splitPattern.Split(strings.TrimSpace(toPart), -1) {
			tok = strings.TrimSpace(tok)
			optional := false
			if sub := optionalPattern.FindStringSubmatch(tok); sub != nil {
				tok = sub[1]
				optional = true
			}
			to, err := parseLaneNumber(tok)
			if err != nil {
				return nil, malformed(tok, text)
			}
			connections[to] = optional
		}
		result.Set(from, connections)
	}

	return result, nil
}

func parseLaneNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("lane number must be positive, got %d", n)
	}
	return n, nil
}

// EncodeLanes joins lane indices with `;`. An empty list means "no tag" and encodes to "".
func EncodeLanes(lanes []int) string {
	if len(lanes) == 0 {
		return ""
	}
	parts := make([]string, len(lanes))
	for i, l := range lanes {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, LIST_SEPARATOR)
}

// DecodeLanes parses a single-list lane tag (`1;2;-1`). Indices may be signed for extra lanes.
func DecodeLanes(text string) ([]int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	toks := splitPattern.Split(strings.TrimSpace(text), -1)
	result := make([]int, 0, len(toks))
	for _, tok := range toks {
		tok = strings.TrimSpace(tok)
		n, err := strconv.Atoi(tok)
		if err != nil || n == 0 {
			return nil, malformed(tok, text)
		}
		result = append(result, n)
	}
	return result, nil
}

// DecodeLengths parses an extra-lane lengths tag. Entries below minLength are returned
// separately in dropped, in their original order.
func DecodeLengths(text string, minLength float64) (kept []float64, dropped []float64, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	for _, tok := range splitPattern.Split(strings.TrimSpace(text), -1) {
		tok = strings.TrimSpace(tok)
		length, perr := util.StringToFloat64(tok)
		if perr != nil {
			return nil, nil, malformed(tok, text)
		}
		if length >= minLength {
			kept = append(kept, length)
		} else {
			dropped = append(dropped, length)
		}
	}
	return kept, dropped, nil
}

func EncodeLengths(lengths []float64) string {
	if len(lengths) == 0 {
		return ""
	}
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = strconv.FormatFloat(l, 'f', -1, 64)
	}
	return strings.Join(parts, LIST_SEPARATOR)
}
