// Package logging is the structured logger every tumbsky component takes.
// The slog-backed implementation lives in slog.go; Nop is for tests.
package logging

import "context"

// Logger logs with alternating key/value args:
//
//	log.Warn(ctx, "skipping invalid record", "did", did, "rkey", rkey)
//
// Attributes stored on ctx with ContextWith (the request id) are added by
// the slog implementation.
type Logger interface {
	// Debug is for expected rejections: bad cookies, skipped events.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for recoverable trouble, e.g. a dropped Tap connection.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying args on every line.
	With(args ...any) Logger
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
