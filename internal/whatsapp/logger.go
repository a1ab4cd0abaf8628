package whatsapp

import (
	log "github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// logrusLogger 把 whatsmeow 的日志接口接到 logrus
type logrusLogger struct {
	entry *log.Entry
}

// newLogger 返回带 module 字段的 whatsmeow 日志器
func newLogger(entry *log.Entry, module string) waLog.Logger {
	return &logrusLogger{entry: entry.WithField("module", module)}
}

func (l *logrusLogger) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *logrusLogger) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }
func (l *logrusLogger) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *logrusLogger) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }

func (l *logrusLogger) Sub(module string) waLog.Logger {
	parent, _ := l.entry.Data["module"].(string)
	if parent != "" {
		module = parent + "/" + module
	}
	return &logrusLogger{entry: l.entry.WithField("module", module)}
}
