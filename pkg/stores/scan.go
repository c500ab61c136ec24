package stores

import "math"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// lenientInt64 scans an INTEGER column that legacy files may hold as text,
// such as an empty string. Values that are not whole numbers read as NULL.
type lenientInt64 struct{ dst **int64 }

func (l lenientInt64) Scan(src any) error {
	*l.dst = nil
	switch v := src.(type) {
	case int64:
		*l.dst = &v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			i := int64(v)
			*l.dst = &i
		}
	}
	return nil
}

// lenientFloat64 is the REAL counterpart of lenientInt64.
type lenientFloat64 struct{ dst **float64 }

func (l lenientFloat64) Scan(src any) error {
	*l.dst = nil
	switch v := src.(type) {
	case float64:
		*l.dst = &v
	case int64:
		f := float64(v)
		*l.dst = &f
	}
	return nil
}
