package orm

import (
	"database/sql"
	"fmt"
	"time"
)

// nullCatcher wraps a scan destination of a fetch-joined row segment.
// A NULL marks the row segment as absent without failing the scan.
type nullCatcher struct {
	dest  any
	valid bool
}

// Scan implements sql.Scanner.
func (n *nullCatcher) Scan(v any) error {
	if v == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return assign(n.dest, v)
}

// assign converts a driver value into the typed destination pointer.
func assign(dest, v any) error {
	if sc, ok := dest.(sql.Scanner); ok {
		return sc.Scan(v)
	}
	switch d := dest.(type) {
	case *int:
		switch v := v.(type) {
		case int64:
			*d = int(v)
		case float64:
			*d = int(v)
		default:
			return convErr(dest, v)
		}
	case *int64:
		switch v := v.(type) {
		case int64:
			*d = v
		case float64:
			*d = int64(v)
		default:
			return convErr(dest, v)
		}
	case *uint64:
		switch v := v.(type) {
		case int64:
			*d = uint64(v)
		case uint64:
			*d = v
		default:
			return convErr(dest, v)
		}
	case *float64:
		switch v := v.(type) {
		case float64:
			*d = v
		case int64:
			*d = float64(v)
		default:
			return convErr(dest, v)
		}
	case *bool:
		switch v := v.(type) {
		case bool:
			*d = v
		case int64:
			*d = v != 0
		default:
			return convErr(dest, v)
		}
	case *string:
		switch v := v.(type) {
		case string:
			*d = v
		case []byte:
			*d = string(v)
		default:
			return convErr(dest, v)
		}
	case *[]byte:
		switch v := v.(type) {
		case []byte:
			*d = append([]byte(nil), v...)
		case string:
			*d = []byte(v)
		default:
			return convErr(dest, v)
		}
	case *time.Time:
		switch v := v.(type) {
		case time.Time:
			*d = v
		case string:
			t, err := parseTime(v)
			if err != nil {
				return err
			}
			*d = t
		case []byte:
			t, err := parseTime(string(v))
			if err != nil {
				return err
			}
			*d = t
		default:
			return convErr(dest, v)
		}
	default:
		return fmt.Errorf("orm: unsupported scan destination %T", dest)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("orm: cannot parse time value %q", s)
}

func convErr(dest, v any) error {
	return fmt.Errorf("orm: cannot assign %T into %T", v, dest)
}
