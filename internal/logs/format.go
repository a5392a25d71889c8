package logs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Format renders one JSON log record as "15:04:05 LEVEL component: msg k=v".
// Lines that are not JSON objects are returned unchanged.
func Format(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}

	var b strings.Builder
	if ts, ok := record["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			b.WriteString(parsed.Local().Format("15:04:05"))
			b.WriteByte(' ')
		}
	}
	if level, ok := record["level"].(string); ok {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(level))
	}
	if component, ok := record["component"].(string); ok && component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if msg, ok := record["msg"].(string); ok {
		b.WriteString(msg)
	}

	skip := map[string]bool{"ts": true, "level": true, "component": true, "msg": true, "source": true, "session_id": true}
	keys := make([]string, 0, len(record))
	for key := range record {
		if !skip[key] {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, record[key])
	}
	return b.String()
}
