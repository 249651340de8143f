package main

import (
	"io"
	"log/slog"
	"time"
)

var nowForTest = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
