package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// attrText is an attribute rendered for the progress line.
type attrText struct {
	Key   string
	Value string
}

func (a attrText) appendTo(b *strings.Builder) {
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value)
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// flatten renders attr, expanding groups into dotted keys.
func flatten(group string, attr slog.Attr) []attrText {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		sub := attr.Value.Group()
		if len(sub) == 0 {
			return nil
		}
		prefix := group
		if attr.Key != "" {
			prefix = qualify(group, attr.Key)
		}
		var out []attrText
		for _, a := range sub {
			out = append(out, flatten(prefix, a)...)
		}
		return out
	}
	if attr.Equal(slog.Attr{}) {
		return nil
	}
	return []attrText{toAttrText(qualify(group, attr.Key), attr.Value)}
}

// toAttrText converts a resolved slog.Value to its display form.
func toAttrText(key string, v slog.Value) attrText {
	text := attrText{Key: key}

	switch v.Kind() {
	case slog.KindString:
		text.Value = quoteIfNeeded(v.String())
	case slog.KindInt64:
		text.Value = strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		text.Value = strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		text.Value = strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		text.Value = strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		text.Value = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		text.Value = v.Duration().String()
	case slog.KindAny:
		switch a := v.Any().(type) {
		case nil:
			text.Value = "<nil>"
		case error:
			text.Value = quoteIfNeeded(a.Error())
		case fmt.Stringer:
			text.Value = quoteIfNeeded(a.String())
		default:
			if data, err := json.Marshal(a); err == nil {
				text.Value = string(data)
			} else {
				text.Value = quoteIfNeeded(fmt.Sprintf("%v", a))
			}
		}
	default:
		text.Value = quoteIfNeeded(v.String())
	}
	return text
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
