// Package zap adapts a *zap.Logger to readcache.Logger.
package zap

import (
	"github.com/prashanthpai/readcache"

	"go.uber.org/zap"
)

var _ readcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f readcache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f readcache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f readcache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f readcache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f readcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
