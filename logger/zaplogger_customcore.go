package logger

import (
	"go.uber.org/zap/zapcore"
)

// trailingFieldKeys are always written last, in this order.
var trailingFieldKeys = []string{"request_id", "component"}

type customCore struct {
	zapcore.Core
}

// With adds structured context to the Core.
func (c *customCore) With(fields []zapcore.Field) zapcore.Core {
	return &customCore{c.Core.With(fields)}
}

// Write moves the request_id and component fields to the end of the entry before
// handing it to the wrapped core. Fields that are absent are not synthesised.
func (c *customCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, reorderFields(fields))
}

// Check determines whether the supplied Entry should be logged. The entry is registered
// against this core rather than the wrapped one so Write goes through the reordering.
func (c *customCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, c)
	}
	return checkedEntry
}

// Sync flushes buffered logs (if any).
func (c *customCore) Sync() error {
	return c.Core.Sync()
}

func reorderFields(fields []zapcore.Field) []zapcore.Field {
	trailing := make([]*zapcore.Field, len(trailingFieldKeys))
	reordered := make([]zapcore.Field, 0, len(fields))

	for i := range fields {
		moved := false
		for k, key := range trailingFieldKeys {
			if fields[i].Key == key {
				trailing[k] = &fields[i]
				moved = true
				break
			}
		}
		if !moved {
			reordered = append(reordered, fields[i])
		}
	}

	for _, f := range trailing {
		if f != nil {
			reordered = append(reordered, *f)
		}
	}
	return reordered
}
