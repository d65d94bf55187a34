package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// numberAPI decodes JSON numbers as json.Number so they can become decimals.
var numberAPI = sonic.Config{UseNumber: true}.Froze()

func encodeAttributes(attrs map[string]any) ([]byte, error) {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch x := v.(type) {
		case decimal.Decimal:
			out[k] = json.Number(x.String())
		case time.Time:
			out[k] = x.UTC().Format(time.RFC3339Nano)
		default:
			out[k] = v
		}
	}
	return sonic.Marshal(out)
}

func decodeAttributes(raw []byte) (map[string]any, error) {
	var in map[string]any
	if err := numberAPI.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case json.Number:
			d, err := decimal.NewFromString(x.String())
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			out[k] = d
		case []any:
			out[k] = stringsOrAny(x)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// stringsOrAny returns l as []string when every element is a string.
func stringsOrAny(l []any) any {
	strs := make([]string, 0, len(l))
	for _, e := range l {
		s, ok := e.(string)
		if !ok {
			return l
		}
		strs = append(strs, s)
	}
	return strs
}
