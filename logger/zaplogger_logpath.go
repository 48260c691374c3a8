// logger/zaplogger_logpath.go

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logFilePrefix = "vmconsole_"

// EnsureLogFilePath prepares a log export path. A directory (existing or not, or any path
// without a .log extension) gets a timestamped file name appended; a .log file path is used
// as is. The parent directory is created when missing.
func EnsureLogFilePath(logPath string) (string, error) {
	if logPath == "" {
		logPath = "."
	}

	info, err := os.Stat(logPath)
	switch {
	case err == nil && info.IsDir():
		logPath = filepath.Join(logPath, timestampedLogName(time.Now()))
	case os.IsNotExist(err) && !strings.EqualFold(filepath.Ext(logPath), ".log"):
		logPath = filepath.Join(logPath, timestampedLogName(time.Now()))
	case err != nil && !os.IsNotExist(err):
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return "", err
	}

	return logPath, nil
}

func timestampedLogName(t time.Time) string {
	return logFilePrefix + t.Format("20060102_150405") + ".log"
}
