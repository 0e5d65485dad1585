package resource

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// ParseID parses a path or body identifier.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// coerceColumns maps a partial JSON payload onto column values. Unknown and
// read-only fields, and values of the wrong shape, are collected as field
// errors.
func (d Descriptor) coerceColumns(payload map[string]any) (map[string]any, error) {
	var v validation.Collector
	columns := make(map[string]any, len(payload))

	for name, raw := range payload {
		if _, ro := readOnlyFields[name]; ro {
			v.Add(name, "read_only", name+" cannot be changed")
			continue
		}
		f, ok := d.field(name)
		if !ok {
			v.Add(name, "unknown_field", name+" is not a field of "+d.Name)
			continue
		}
		value, err := coerceValue(f, raw)
		if err != nil {
			v.Add(name, err.Error(), fieldMessage(name, f.Kind, err.Error()))
			continue
		}
		columns[f.Column] = value
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

type coerceError string

func (e coerceError) Error() string { return string(e) }

const (
	errRequired     coerceError = "required"
	errTypeMismatch coerceError = "type_mismatch"
	errInvalid      coerceError = "invalid_format"
)

func fieldMessage(name string, kind FieldKind, code string) string {
	switch coerceError(code) {
	case errRequired:
		return name + " is required"
	case errTypeMismatch:
		return fmt.Sprintf("%s must be a %s", name, kind)
	default:
		return fmt.Sprintf("%s is not a valid %s", name, kind)
	}
}

func coerceValue(f Field, raw any) (any, error) {
	if raw == nil {
		if f.Required {
			return nil, errRequired
		}
		switch f.Kind {
		case KindString, KindText, KindEmail:
			return "", nil
		case KindBool:
			return nil, errTypeMismatch
		default:
			return nil, nil
		}
	}

	switch f.Kind {
	case KindString, KindText, KindEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, errTypeMismatch
		}
		s = strings.TrimSpace(s)
		if s == "" && f.Required {
			return nil, errRequired
		}
		if f.Kind == KindEmail && s != "" && !strings.Contains(s, "@") {
			return nil, errInvalid
		}
		return s, nil

	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, errTypeMismatch
		}
		return b, nil

	case KindInt:
		return coerceInt(raw)

	case KindDecimal:
		switch n := raw.(type) {
		case json.Number:
			d, err := decimal.NewFromString(n.String())
			if err != nil {
				return nil, errInvalid
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(n), nil
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(n))
			if err != nil {
				return nil, errInvalid
			}
			return d, nil
		default:
			return nil, errTypeMismatch
		}

	case KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, errTypeMismatch
		}
		if strings.TrimSpace(s) == "" {
			if f.Required {
				return nil, errRequired
			}
			return nil, nil
		}
		t, err := ParseDate(s)
		if err != nil {
			return nil, errInvalid
		}
		return t, nil

	case KindID:
		var s string
		switch n := raw.(type) {
		case string:
			s = n
		case json.Number:
			s = n.String()
		default:
			return nil, errTypeMismatch
		}
		if strings.TrimSpace(s) == "" && !f.Required {
			return nil, nil
		}
		id, err := ParseID(s)
		if err != nil {
			return nil, errInvalid
		}
		return id, nil

	case KindJSON:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, errInvalid
		}
		return datatypes.JSON(b), nil
	}
	return nil, errTypeMismatch
}

func coerceInt(raw any) (any, error) {
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, errTypeMismatch
		}
		return i, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, errTypeMismatch
		}
		return int64(n), nil
	default:
		return nil, errTypeMismatch
	}
}

// coerceQuery converts a query-string filter value to the field's type.
func coerceQuery(f Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errTypeMismatch
		}
		return b, nil
	case KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errTypeMismatch
		}
		return i, nil
	case KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errTypeMismatch
		}
		return d, nil
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return nil, errInvalid
		}
		return t, nil
	case KindID:
		id, err := ParseID(raw)
		if err != nil {
			return nil, errInvalid
		}
		return id, nil
	default:
		return raw, nil
	}
}
