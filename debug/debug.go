package debug

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var (
	Debug bool

	logger = logrus.New()
)

func init() {
	debugEnv, exists := os.LookupEnv("EASYSOCKET_DEBUG")
	if exists {
		if val, err := strconv.ParseBool(debugEnv); err == nil && val {
			Enable()
		}
	}
}

// Printf logs at debug level when tracing is enabled.
func Printf(format string, v ...interface{}) {
	if Debug {
		logger.Debugf(format, v...)
	}
}

// Logger returns the shared logger used for lifecycle lines.
func Logger() *logrus.Logger {
	return logger
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Enable() {
	Debug = true
	logger.SetLevel(logrus.DebugLevel)
}

func Disable() {
	Debug = false
	logger.SetLevel(logrus.InfoLevel)
}
