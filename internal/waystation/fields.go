package waystation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/models"
)

// MarkField names one user-editable field of a Mark. The set is closed: id
// and resources are never edited through EditMark.
type MarkField int

// Editable mark fields.
const (
	FieldName MarkField = iota + 1
	FieldBody
	FieldPath
	FieldLine
	FieldColumn
)

var fieldNames = map[MarkField]string{
	FieldName:   "name",
	FieldBody:   "body",
	FieldPath:   "path",
	FieldLine:   "line",
	FieldColumn: "column",
}

// MarkFields lists the editable fields in display order.
var MarkFields = []MarkField{FieldName, FieldBody, FieldPath, FieldLine, FieldColumn}

func (f MarkField) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("MarkField(%d)", int(f))
}

// Valid reports whether f is one of the editable fields.
func (f MarkField) Valid() bool {
	_, ok := fieldNames[f]
	return ok
}

// ParseMarkField resolves a field name case-insensitively.
func ParseMarkField(name string) (MarkField, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", apperr.ErrUnknownField, name)
}

func (f MarkField) apply(m models.Mark, value any) (models.Mark, error) {
	out := m.Clone()
	switch f {
	case FieldName, FieldBody, FieldPath:
		s, ok := value.(string)
		if !ok {
			return m, fmt.Errorf("must be a string, got %T", value)
		}
		switch f {
		case FieldName:
			out.Name = s
		case FieldBody:
			out.Body = s
		default:
			out.Path = s
		}
	case FieldLine, FieldColumn:
		n, err := toInt(value)
		if err != nil {
			return m, err
		}
		if f == FieldLine {
			out.Line = n
		} else {
			out.Column = n
		}
	}
	return out, nil
}

// toInt accepts the integer shapes produced by Go callers, JSON decoding and
// text input.
func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("must be an integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", value)
	}
}
