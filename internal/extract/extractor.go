// Package extract turns a raw JSON object into a flat schema.Record.
package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
)

// DefaultTimezone is the zone epoch columns are localized into.
const DefaultTimezone = "America/Los_Angeles"

// ShapeError reports a node that is not the JSON type its position requires.
type ShapeError struct {
	Path string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error { return util.ErrMalformed }

// NewShapeError builds a ShapeError describing the value found at path.
func NewShapeError(path, want string, got any) *ShapeError {
	return &ShapeError{Path: path, Want: want, Got: TypeName(got)}
}

// TypeName names the JSON type of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int64, int:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Extractor resolves declared columns against raw nodes.
// Safe for concurrent use.
type Extractor struct {
	loc *time.Location

	mu    sync.RWMutex
	exprs map[string]jp.Expr
}

// New creates an extractor that localizes epoch columns into loc.
// A nil loc means UTC.
func New(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{loc: loc, exprs: make(map[string]jp.Expr)}
}

// Location returns the zone used for EpochLocal columns.
func (e *Extractor) Location() *time.Location { return e.loc }

// Extract produces one value per scalar column of t. Missing and null keys
// both yield nil. It only fails when raw is not a JSON object.
func (e *Extractor) Extract(raw any, t *schema.Table) (schema.Record, error) {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, NewShapeError("$", "object", raw)
	}

	rec := make(schema.Record, len(t.Columns))
	for _, col := range t.Columns {
		v := e.lookup(node, col.SourceKey())
		if v == nil && col.Alias != "" {
			v = e.lookup(node, col.Alias)
		}
		rec[col.Name] = e.Coerce(col, v)
	}
	return rec, nil
}

func (e *Extractor) lookup(node map[string]any, source string) any {
	return e.expr(source).First(node)
}

func (e *Extractor) expr(source string) jp.Expr {
	e.mu.RLock()
	x, ok := e.exprs[source]
	e.mu.RUnlock()
	if ok {
		return x
	}

	// Source keys may start with "_" or contain characters jp.ParseString
	// treats specially, so the expression is built from child fragments.
	var built jp.Expr
	for _, part := range strings.Split(source, ".") {
		if built == nil {
			built = jp.C(part)
		} else {
			built = built.C(part)
		}
	}

	e.mu.Lock()
	e.exprs[source] = built
	e.mu.Unlock()
	return built
}

// Coerce converts a decoded JSON value to the column's kind and applies its
// transform. Values that cannot be converted become nil.
func (e *Extractor) Coerce(col schema.Column, v any) any {
	if v == nil {
		return nil
	}
	switch col.Transform {
	case schema.EpochLocal:
		return e.epoch(v)
	case schema.CompactDate:
		return e.compactDate(v)
	}

	switch col.Kind {
	case schema.Text:
		return toText(v)
	case schema.Integer, schema.BigInt:
		if n, ok := toInt(v); ok {
			return n
		}
	case schema.Float:
		if f, ok := toFloat(v); ok {
			return f
		}
	case schema.Bool:
		if b, ok := toBool(v); ok {
			return b
		}
	case schema.Timestamp:
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				return ts.In(e.loc)
			}
		}
	}
	return nil
}

func (e *Extractor) epoch(v any) any {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).In(e.loc)
}

func (e *Extractor) compactDate(v any) any {
	s := toText(v)
	if len(s) != 8 {
		return nil
	}
	d, err := time.ParseInLocation("20060102", s, e.loc)
	if err != nil {
		return nil
	}
	return d
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f), true
		}
	case float64:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case json.Number:
		switch x.String() {
		case "0":
			return false, true
		case "1":
			return true, true
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, true
		}
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b, true
		}
	}
	return false, false
}
