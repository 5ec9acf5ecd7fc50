package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// ConvertValue normalizes a raw Glide value into the declared destination
// type. It is total: any unconvertible input degrades to nil instead of
// failing the row.
func ConvertValue(raw interface{}, dataType DataType) interface{} {
	if raw == nil {
		return nil
	}

	switch dataType {
	case TypeString:
		return convertString(raw)
	case TypeNumber:
		return convertNumber(raw)
	case TypeBoolean:
		return convertBoolean(raw)
	case TypeDateTime:
		return convertDateTime(raw)
	case TypeImageURI:
		return convertImageURI(raw)
	case TypeEmail:
		return convertEmail(raw)
	default:
		return convertString(raw)
	}
}

func convertString(raw interface{}) interface{} {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func convertNumber(raw interface{}) interface{} {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return n
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	default:
		return nil
	}
}

func convertBoolean(raw interface{}) interface{} {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		case "false", "no", "n", "0":
			return false
		default:
			return nil
		}
	default:
		return nil
	}
}

// dateFormats covers the encodings Glide emits for date-time cells.
var dateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func convertDateTime(raw interface{}) interface{} {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		return nil
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(v)).UTC()
	default:
		return nil
	}
}

func convertImageURI(raw interface{}) interface{} {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:image/") {
		return s
	}
	return nil
}

func convertEmail(raw interface{}) interface{} {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return nil
	}
	if !strings.Contains(s[at+1:], ".") {
		return nil
	}
	return s
}

// ApplyTransform runs an optional user-supplied Tengo snippet over a
// converted value. The script reads and reassigns `value`; a compile or
// runtime failure is returned so the engine can record a transform error,
// with the untransformed value preserved.
func ApplyTransform(value interface{}, scriptContent string) (interface{}, error) {
	if scriptContent == "" {
		return value, nil
	}

	script := tengo.NewScript([]byte(scriptContent))
	script.SetImports(stdlib.GetModuleMap("text", "times", "math", "fmt"))
	if err := script.Add("value", value); err != nil {
		return value, fmt.Errorf("failed to bind value: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return value, fmt.Errorf("failed to compile transform: %w", err)
	}

	if err := compiled.Run(); err != nil {
		return value, fmt.Errorf("failed to run transform: %w", err)
	}

	return compiled.Get("value").Value(), nil
}
