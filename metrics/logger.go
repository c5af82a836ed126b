package metrics

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Log(info *RowReadInfo)
}

type NopLogger struct{}

func (NopLogger) Log(info *RowReadInfo) {}

type StdoutLogger struct {
	logger *log.Logger
}

// NewStdoutLogger writes one JSON record per line to logger, or to the
// standard logger when nil.
func NewStdoutLogger(logger *log.Logger) *StdoutLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &StdoutLogger{logger: logger}
}

func (l *StdoutLogger) Log(info *RowReadInfo) {
	infoStr, err := info.ToJSON()
	if err == nil {
		l.logger.Print(infoStr)
	} else {
		l.logger.Printf("StdoutLogger: error: %v", err)
	}
}

const defaultQueueSize = 2000
const defaultLogWriters = 2
const defaultMaxLogFileSize = 256 * 1024 * 1024
const defaultMaxLogFiles = 10

// FileLogger queues records and appends them to per-writer files in LogDir,
// rotating each file once it reaches MaxLogFileSize. At most MaxLogFiles
// rotated files are kept per writer; the oldest is overwritten after that.
type FileLogger struct {
	MetricsQueue   chan *RowReadInfo
	LogDir         string
	MaxLogFileSize int64
	MaxLogFiles    int
	Verbose        bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewFileLogger(logDir string, maxLogFileSize int64, maxLogFiles int, verbose bool) (*FileLogger, error) {
	if maxLogFileSize <= 0 {
		maxLogFileSize = defaultMaxLogFileSize
	}
	if maxLogFiles <= 0 {
		maxLogFiles = defaultMaxLogFiles
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating metrics log dir: %w", err)
	}

	logger := &FileLogger{
		MetricsQueue:   make(chan *RowReadInfo, defaultQueueSize),
		LogDir:         logDir,
		MaxLogFileSize: maxLogFileSize,
		MaxLogFiles:    maxLogFiles,
		Verbose:        verbose,
	}

	for i := 0; i < defaultLogWriters; i++ {
		logger.wg.Add(1)
		go logger.startLogWriter(i)
	}

	return logger, nil
}

func (l *FileLogger) Log(info *RowReadInfo) {
	l.MetricsQueue <- info
}

// Close drains the queue and waits for the writers to finish. Log must not
// be called afterwards.
func (l *FileLogger) Close() {
	l.closeOnce.Do(func() {
		close(l.MetricsQueue)
		l.wg.Wait()
	})
}

func (l *FileLogger) startLogWriter(idx int) {
	defer l.wg.Done()

	f, err := l.openLogFile(idx)
	if err != nil {
		log.Printf("FileLogger%d: log open error: %v", idx, err)
	}
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	for info := range l.MetricsQueue {
		infoStr, err := info.ToJSON()
		if err != nil {
			log.Printf("FileLogger%d: info.ToJSON() error: %v", idx, err)
			continue
		}

		f, err = l.tryRotateLogFile(f, idx)
		if err != nil {
			continue
		}

		if _, err := f.WriteString(infoStr); err != nil {
			log.Printf("FileLogger%d: write error: %v", idx, err)
			continue
		}
		f.Sync()
	}
}

func (l *FileLogger) logFileName(idx int) string {
	return fmt.Sprintf("rowread%d.log", idx)
}

func (l *FileLogger) openLogFile(idx int) (*os.File, error) {
	logFilePath := filepath.Join(l.LogDir, l.logFileName(idx))
	return os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (l *FileLogger) tryRotateLogFile(currFile *os.File, idx int) (*os.File, error) {
	if currFile == nil {
		return l.openLogFile(idx)
	}

	info, err := currFile.Stat()
	if err != nil {
		log.Printf("FileLogger%d: log rotation error: %v", idx, err)
		return currFile, nil
	}
	if info.Size() < l.MaxLogFileSize {
		return currFile, nil
	}

	currLogFilePath := filepath.Join(l.LogDir, l.logFileName(idx))
	var rotatedLogFilePath string
	for i := 0; i < l.MaxLogFiles; i++ {
		filePath := fmt.Sprintf("%s.%d", currLogFilePath, i)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			rotatedLogFilePath = filePath
			break
		}
	}

	if len(rotatedLogFilePath) == 0 {
		rotatedLogFilePath = l.oldestRotatedFile(idx)
		if l.Verbose {
			log.Printf("FileLogger%d: maximum number of log files reached, overwriting %s", idx, rotatedLogFilePath)
		}
		if err := os.Remove(rotatedLogFilePath); err != nil {
			log.Printf("FileLogger%d: log rotation error: %v", idx, err)
			return currFile, nil
		}
	}

	currFile.Close()
	if err := os.Rename(currLogFilePath, rotatedLogFilePath); err != nil {
		log.Printf("FileLogger%d: log rotation error: %v", idx, err)
	} else if l.Verbose {
		log.Printf("FileLogger%d: log file rotated: %v", idx, rotatedLogFilePath)
	}

	f, err := l.openLogFile(idx)
	if err != nil {
		log.Printf("FileLogger%d: log rotation error: %v", idx, err)
		return nil, err
	}
	return f, nil
}

func (l *FileLogger) oldestRotatedFile(idx int) string {
	prefix := l.logFileName(idx) + "."
	oldest := filepath.Join(l.LogDir, prefix+"0")

	entries, err := os.ReadDir(l.LogDir)
	if err != nil {
		log.Printf("FileLogger%d: log rotation error: %v", idx, err)
		return oldest
	}

	oldestTime := time.Now()
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(oldestTime) {
			oldest = filepath.Join(l.LogDir, entry.Name())
			oldestTime = info.ModTime()
		}
	}
	return oldest
}

// NewLogger picks the file logger when logDir is set, the stdout logger
// when verbose, and discards records otherwise.
func NewLogger(logDir string, maxLogFileSize int64, maxLogFiles int, verbose bool) (Logger, error) {
	switch {
	case logDir != "":
		return NewFileLogger(logDir, maxLogFileSize, maxLogFiles, verbose)
	case verbose:
		return NewStdoutLogger(nil), nil
	default:
		return NopLogger{}, nil
	}
}
