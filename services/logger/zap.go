package logsvc

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/session"
)

// ZapLogger writes structured logs. Errors, maps and the acting session.Session found in the args become fields.
type ZapLogger struct {
	z *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZap returns a human readable development logger in debug mode, a JSON production logger otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	var zconf zap.Config
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
	} else {
		zconf = zap.NewProductionConfig()
	}
	z, err := zconf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return z.With(zap.String("app", conf.AppName), zap.String("env", conf.Env)), nil
}

func NewZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z}
}

// Sync flushes buffered logs.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

// fields converts the logger args to zap fields.
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch a := arg.(type) {
		case error:
			fs = append(fs, zap.Error(a))
		case session.Session:
			fs = append(fs, zap.String("user_id", a.UserID), zap.Strings("roles", a.Roles))
		case map[string]interface{}:
			for k, v := range a {
				fs = append(fs, zap.Any(k, v))
			}
		default:
			fs = append(fs, zap.Any(fmt.Sprintf("arg%d", i), a))
		}
	}
	return fs
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.z.Debug(msg, fields(args)...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.z.Info(msg, fields(args)...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.z.Warn(msg, fields(args)...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.z.Error(msg, fields(args)...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.z.Fatal(msg, fields(args)...)
}
