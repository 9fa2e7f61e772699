package persist

import (
	"log"
	"os"
	"time"

	"github.com/NebulousLabs/errors"
)

// Logger wraps the standard library's log.Logger, adding STARTUP and
// SHUTDOWN banners so that operators grepping a chunkserver or master log
// can find process boundaries at a glance.
type Logger struct {
	*log.Logger
	w *os.File
}

// NewLogger returns a logger that writes to w, with no startup banner.
func NewLogger(w *os.File) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC),
		w:      w,
	}
}

// NewFileLogger opens (or creates) the file at path in append mode and
// returns a Logger that writes a STARTUP banner to it naming the caller
// component.
func NewFileLogger(path, component string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.AddContext(err, "could not open log file")
	}
	l := NewLogger(f)
	l.Println("STARTUP: " + component + " logging started " + time.Now().Format(time.RFC3339))
	return l, nil
}

// Close logs a SHUTDOWN banner and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN: logging terminated " + time.Now().Format(time.RFC3339))
	return l.w.Close()
}

// Critical logs a critical error and then panics, the same way
// build.Critical does, but through the persistent logger so the message
// survives process death.
func (l *Logger) Critical(v ...interface{}) {
	l.Println(append([]interface{}{"CRITICAL:"}, v...)...)
	log.Panicln(v...)
}

// Severe logs a severe but non-fatal condition (a corrupt chunk, a stale
// version seen from a chunkserver) that operators should investigate but
// that should not crash the process.
func (l *Logger) Severe(v ...interface{}) {
	l.Println(append([]interface{}{"SEVERE:"}, v...)...)
}
