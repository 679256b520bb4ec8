package logq

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// core adapts a Queue to zapcore.Core so the application logger feeds the
// in-app log view.
type core struct {
	zapcore.LevelEnabler
	queue  *Queue
	fields []zapcore.Field
}

// NewCore returns a zapcore.Core that appends every enabled entry to q.
func NewCore(q *Queue, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, queue: q}
}

// NewLogger builds a zap logger writing into q. This is the logger main
// installs process-wide; tests build their own against throwaway queues.
func NewLogger(q *Queue, enab zapcore.LevelEnabler) *zap.Logger {
	return zap.New(NewCore(q, enab), zap.AddCaller())
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := &core{
		LevelEnabler: c.LevelEnabler,
		queue:        c.queue,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	msg := ent.Message
	if len(c.fields) > 0 || len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range c.fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			f.AddTo(enc)
		}
		msg = appendFields(msg, enc.Fields)
	}
	c.queue.Push(Record{
		Time:    ent.Time,
		Level:   ent.Level.String(),
		Message: msg,
		Logger:  ent.LoggerName,
		Caller:  ent.Caller.TrimmedPath(),
	})
	return nil
}

func (c *core) Sync() error { return nil }
