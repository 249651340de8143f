// Package logging sets up the host's slog and zerolog outputs.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the session log, e.g. logs/custombradley.20260212_213836.log.
// The timestamp is the session start in UTC.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, sessionStart.UTC().Format("20060102_150405")))
}
