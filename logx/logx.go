// Package logx builds the *zap.Logger instances protocol.Connection,
// client.Client, and server.Server accept via their WithLogger option
// (SPEC_FULL Ambient stack / Logging). The engine never calls
// fmt.Println/log.Printf directly; the components log errors (malformed
// frames, transport failures, handler panics, failed debounce flushes)
// and connection events through one of these.
package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded logger at level, with component
// pre-attached as a field — mirroring gate4ai's BaseSession pattern of
// deriving a scoped logger per subsystem via logger.With("component", name).
func New(component string, level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("component", component)), nil
}

// Nop returns a logger that discards everything, the default every
// protocol.Connection/client.Client/server.Server is constructed with
// until WithLogger overrides it.
func Nop() *zap.Logger { return zap.NewNop() }

// WithSession returns a derived logger carrying a session id field, the
// way server.Server scopes per-connection log lines once a transport
// reports one (spec §3 "Session id").
func WithSession(l *zap.Logger, sessionID string) *zap.Logger {
	if sessionID == "" {
		return l
	}
	return l.With(zap.String("sessionID", sessionID))
}

// WithRequest returns a derived logger carrying method/requestID fields,
// used at dispatch sites that log a single in-flight request's lifecycle.
func WithRequest(l *zap.Logger, method, requestID string) *zap.Logger {
	return l.With(zap.String("method", method), zap.String("requestID", requestID))
}
