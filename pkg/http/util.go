package http

import xutil "SignalGate/pkg/util"

// ParseMillisDefault parses RFC3339, RFC3339Nano or unix seconds/millis into
// epoch milliseconds, returning def if s is empty or invalid.
func ParseMillisDefault(s string, def int64) int64 {
	t, ok := xutil.ParseTime(s)
	if !ok {
		return def
	}
	return t.UnixMilli()
}
