package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	core  zapcore.Core
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:  newName,
		level: NewAtomicLevelAt(imp.level.Get()),
		core:  imp.core,
	}
}

func (imp *impl) Sync() error {
	return imp.core.Sync()
}

// AsZap converts the logger to a zap sugared logger. Level changes made through
// SetLevel are observed by the returned logger.
func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.sugared(0)
}

func (imp *impl) sugared(callerSkip int) *zap.SugaredLogger {
	logger := zap.New(&leveledCore{imp.core, imp.level}, zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	if imp.name != "" {
		logger = logger.Named(imp.name)
	}
	return logger.Sugar()
}

// leveledCore applies the logger's own level on top of whatever the wrapped core allows.
type leveledCore struct {
	zapcore.Core
	level AtomicLevel
}

func (lc *leveledCore) Enabled(lvl zapcore.Level) bool {
	return lc.level.Enabled(lvl) && lc.Core.Enabled(lvl)
}

func (lc *leveledCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !lc.level.Enabled(entry.Level) {
		return checked
	}
	return lc.Core.Check(entry, checked)
}

func (lc *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{lc.Core.With(fields), lc.level}
}

func (imp *impl) Debug(args ...interface{}) {
	imp.sugared(1).Debug(args...)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.sugared(1).Debugf(template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.sugared(1).Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) {
	imp.sugared(1).Info(args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.sugared(1).Infof(template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.sugared(1).Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.sugared(1).Warn(args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.sugared(1).Warnf(template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.sugared(1).Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) {
	imp.sugared(1).Error(args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.sugared(1).Errorf(template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.sugared(1).Errorw(msg, keysAndValues...)
}
