package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	l, hook := test.NewNullLogger()
	g := NewGormLogger(l)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, hook.AllEntries())

	g.Trace(context.Background(), time.Now(), sql, errors.New("conn reset"))
	if assert.Len(t, hook.AllEntries(), 1) {
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	}

	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	hook.Reset()
	g.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("x"))
	assert.Empty(t, hook.AllEntries())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}
