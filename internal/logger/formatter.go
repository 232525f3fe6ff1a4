package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// FixedFormatWriter converts zerolog JSON lines into fixed-width columns
// for the rotated log file:
//
//	2026-10-17 12:00:00.000 [INF] [scheduler      ] Scheduler started interval=1s
//	2026-10-17 12:00:01.200 [WRN] [updater        ] Update check failed err="access denied"
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter creates a new FixedFormatWriter that wraps the given writer.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

var levelMap = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

const (
	componentWidth  = 15
	timestampLayout = "2006-01-02 15:04:05.000"
)

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := formatTimestamp(takeString(fields, zeroLogTimeKey))
	lvl, ok := levelMap[takeString(fields, "level")]
	if !ok {
		lvl = "???"
	}
	comp := takeString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	message := takeString(fields, "message")

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", ts, lvl, componentWidth, comp, message)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog expects the length of what it handed over
	return len(p), err
}

const zeroLogTimeKey = "time"

// takeString removes key from fields and returns its value as a string.
func takeString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp renders an RFC3339 timestamp as wall-clock time with
// millisecond precision, dropping the zone. Unparseable input is padded
// or cut to the column width.
func formatTimestamp(ts string) string {
	if ts == "" {
		return strings.Repeat(" ", len(timestampLayout))
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		if len(ts) > len(timestampLayout) {
			return ts[:len(timestampLayout)]
		}
		return ts + strings.Repeat(" ", len(timestampLayout)-len(ts))
	}
	return t.Format(timestampLayout)
}

// formatExtra builds a sorted "key=value key2=value2" string from the remaining fields.
func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, " ")
}
