package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrNonFinite is returned for NaN or infinite numbers, which have no JSON form
var ErrNonFinite = errors.New("non-finite number cannot be canonicalized")

// maxExactInt is the largest magnitude rendered in integer form
const maxExactInt = 1 << 53

const hexDigits = "0123456789abcdef"

// Canonical serializes v with object keys sorted at every depth and no whitespace
func Canonical(v Value) ([]byte, error) {
	return appendValue(nil, v)
}

// Sum returns the lowercase hex SHA-256 of the canonical form of v
func Sum(v Value) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(b)
	return hex.EncodeToString(digest[:]), nil
}

// Hash digests a regional forecast as {"predictions": q, "region_id": region}
func Hash(quantities map[string]float64, region string) (string, error) {
	return Sum(Object(map[string]Value{
		"predictions": Quantities(quantities),
		"region_id":   String(region),
	}))
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		if v.b {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case KindNumber:
		return appendNumber(buf, v.n)
	case KindString:
		return appendString(buf, v.s), nil
	case KindArray:
		buf = append(buf, '[')
		for i, item := range v.items {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		buf = append(buf, '{')
		for i, k := range v.sortedKeys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendString(buf, k)
			buf = append(buf, ':')
			var err error
			if buf, err = appendValue(buf, v.fields[k]); err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, errors.New("unknown value kind")
	}
}

// appendNumber writes integral values without a fraction and everything else
// in shortest round-trip form, switching to exponent notation outside [1e-4, 1e16).
func appendNumber(buf []byte, n float64) ([]byte, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, ErrNonFinite
	}
	if n == math.Trunc(n) && math.Abs(n) < maxExactInt {
		return strconv.AppendInt(buf, int64(n), 10), nil
	}
	abs := math.Abs(n)
	if abs >= 1e-4 && abs < 1e16 {
		return strconv.AppendFloat(buf, n, 'f', -1, 64), nil
	}
	return strconv.AppendFloat(buf, n, 'e', -1, 64), nil
}

// appendString quotes s using only printable ASCII, escaping everything else as \uXXXX
func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '"':
			buf = append(buf, '\\', '"')
		case r == '\\':
			buf = append(buf, '\\', '\\')
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r == '\b':
			buf = append(buf, '\\', 'b')
		case r == '\f':
			buf = append(buf, '\\', 'f')
		case r >= 0x20 && r <= 0x7e:
			buf = append(buf, byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			buf = appendEscape(buf, hi)
			buf = appendEscape(buf, lo)
		default:
			buf = appendEscape(buf, r)
		}
	}
	return append(buf, '"')
}

func appendEscape(buf []byte, r rune) []byte {
	return append(buf, '\\', 'u',
		hexDigits[(r>>12)&0xf],
		hexDigits[(r>>8)&0xf],
		hexDigits[(r>>4)&0xf],
		hexDigits[r&0xf],
	)
}
