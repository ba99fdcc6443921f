package logsvc

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

// ZapLogger writes structured logs with zap.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger uses zap's development config in debug mode and its production config otherwise.
func NewZapLogger(name string, debug bool) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: l.Named(name).Sugar()}, nil
}

// NewNopLogger discards everything; meant for tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

// fields turns logger args into zap key/values: errors, maps of extra fields and session claims.
func fields(args []interface{}) []interface{} {
	kvs := make([]interface{}, 0, len(args)*2)
	for i, arg := range args {
		switch a := arg.(type) {
		case nil:
		case error:
			kvs = append(kvs, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				kvs = append(kvs, k, redact(k, v))
			}
		case session.Claims:
			kvs = append(kvs, "user", a.Subject)
		case *session.Claims:
			if a != nil {
				kvs = append(kvs, "user", a.Subject)
			}
		default:
			kvs = append(kvs, fmt.Sprintf("arg%d", i), a)
		}
	}
	return kvs
}

func redact(key string, val interface{}) interface{} {
	key = strings.ToLower(key)
	if strings.Contains(key, "token") || strings.Contains(key, "password") || strings.Contains(key, "secret") {
		return "[REDACTED]"
	}
	return val
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, fields(args)...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, fields(args)...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, fields(args)...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, fields(args)...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, fields(args)...)
}
