// Package lookup loads the reference tables used to classify and describe
// commodity codes.
package lookup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrMalformedLookup = errors.New("lookup: malformed lookup file")

const hs4Width = 4

// Agriculture is the set of four-digit commodity prefixes classed as
// agricultural products.
type Agriculture struct {
	codes map[string]struct{}
}

func NewAgriculture(codes []string) *Agriculture {
	a := &Agriculture{codes: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		a.codes[hs4(code)] = struct{}{}
	}
	return a
}

func LoadAgriculture(path string) (*Agriculture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lookup: read %s: %w", path, err)
	}
	return ParseAgriculture(data)
}

// ParseAgriculture accepts a JSON array of codes or an object whose values
// are codes. Codes may be numbers or strings.
func ParseAgriculture(data []byte) (*Agriculture, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLookup, err)
	}

	var values []interface{}
	switch v := raw.(type) {
	case []interface{}:
		values = v
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values = append(values, v[key])
		}
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrMalformedLookup)
	}

	codes := make([]string, 0, len(values))
	for _, value := range values {
		switch code := value.(type) {
		case json.Number:
			codes = append(codes, code.String())
		case string:
			codes = append(codes, code)
		default:
			return nil, fmt.Errorf("%w: code %v", ErrMalformedLookup, value)
		}
	}
	return NewAgriculture(codes), nil
}

// IsAgricultural reports whether the four-digit prefix of code is listed.
func (a *Agriculture) IsAgricultural(code string) bool {
	if a == nil {
		return false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	_, ok := a.codes[hs4(code)]
	return ok
}

func (a *Agriculture) Len() int {
	if a == nil {
		return 0
	}
	return len(a.codes)
}

func hs4(code string) string {
	if len(code) >= hs4Width {
		return code[:hs4Width]
	}
	return strings.Repeat("0", hs4Width-len(code)) + code
}
