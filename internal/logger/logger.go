package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Options controls where and how much the service logs.
type Options struct {
	File   string
	Level  string
	Stdout bool
}

var output io.Writer = os.Stdout

// Setup initializes Logrus logging via a rotating file.
func Setup(opts Options) {
	if opts.File == "" {
		opts.File = "./logs/app.log"
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	var w io.Writer = rotator
	if opts.Stdout {
		w = io.MultiWriter(os.Stdout, rotator)
	}
	output = w

	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Output is the writer Setup configured; the HTTP access log shares it.
func Output() io.Writer {
	return output
}

// GormLogger routes GORM's SQL logging through Logrus.
func GormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
