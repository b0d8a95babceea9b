package logger

import "go.uber.org/zap"

// ZapLogger is the sugared logger behind the package-level helpers. Every
// entry carries the base fields it was built with.
type ZapLogger struct {
	log *zap.SugaredLogger
}

var zapLogger *ZapLogger

// NewLogger builds a logger from config, tags it with fields and installs
// it as the process logger.
func NewLogger(config zap.Config, fields ...any) (*ZapLogger, error) {
	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	zapLogger = wrap(l, fields...)
	return zapLogger, nil
}

// wrap skips the two frames of the package helper and the method so the
// caller shown is the code that logged.
func wrap(l *zap.Logger, fields ...any) *ZapLogger {
	return &ZapLogger{log: l.WithOptions(zap.AddCallerSkip(2)).Sugar().With(fields...)}
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

// Printf lets fasthttp write its server errors through zap.
func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Warnf(format, args...)
}

func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}
