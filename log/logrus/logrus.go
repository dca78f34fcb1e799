// Package logrus adapts a logrus.FieldLogger to readcache.Logger.
package logrus

import (
	"github.com/prashanthpai/readcache"

	"github.com/sirupsen/logrus"
)

var _ readcache.Logger = Logger{}

type Logger struct{ L logrus.FieldLogger }

func (l Logger) Debug(msg string, f readcache.Fields) { l.L.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f readcache.Fields)  { l.L.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f readcache.Fields)  { l.L.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f readcache.Fields) { l.L.WithFields(logrus.Fields(f)).Error(msg) }
