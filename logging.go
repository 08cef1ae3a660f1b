package relay

import (
	"io"
	"log/slog"
)

// nopLogger discards all output. Used as the fallback wherever no logger
// is configured so call sites never nil-check.
var nopLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
