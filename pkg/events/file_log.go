package events

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// FileLog records events to a file as newline-delimited JSON with optional
// compression. Intended for post-session review of what the engine did to a
// target process.
type FileLog struct {
	mu              sync.Mutex
	file            *os.File
	writer          io.Writer
	bufWriter       *bufio.Writer
	path            string
	compressionType CompressionType
	callback        func(Event)
}

// FileLogOptions contains options for creating a file log
type FileLogOptions struct {
	CompressionType CompressionType
}

// DefaultFileLogOptions returns default options for the file log
func DefaultFileLogOptions() FileLogOptions {
	return FileLogOptions{
		CompressionType: DefaultCompression,
	}
}

// NewFileLog creates a new file log with default options
func NewFileLog(path string) (*FileLog, error) {
	return NewFileLogWithOptions(path, DefaultFileLogOptions())
}

// NewFileLogWithOptions creates a new file log with the given options
func NewFileLogWithOptions(path string, options FileLogOptions) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	bufWriter := bufio.NewWriter(f)
	compressedWriter := NewCompressedWriter(bufWriter, options.CompressionType)

	return &FileLog{
		file:            f,
		writer:          compressedWriter,
		bufWriter:       bufWriter,
		path:            path,
		compressionType: options.CompressionType,
	}, nil
}

// Record writes an event to the file and invokes the realtime callback.
func (fl *FileLog) Record(e Event) error {
	fl.mu.Lock()

	data, err := json.Marshal(e)
	if err != nil {
		fl.mu.Unlock()
		return err
	}

	if _, err := fl.writer.Write(data); err != nil {
		fl.mu.Unlock()
		return err
	}
	if _, err := fl.writer.Write([]byte{'\n'}); err != nil {
		fl.mu.Unlock()
		return err
	}
	if err := fl.bufWriter.Flush(); err != nil {
		fl.mu.Unlock()
		return err
	}

	cb := fl.callback
	fl.mu.Unlock()

	if cb != nil {
		cb(e)
	}
	return nil
}

// Events reads all events back from the file, decompressing if necessary.
func (fl *FileLog) Events() []Event {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	// Finish the current compression frame so the file is readable.
	CloseCompressedWriter(fl.writer, fl.compressionType)
	fl.bufWriter.Flush()

	f, err := os.Open(fl.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader, err := NewCompressedReader(f, fl.compressionType)
	if err != nil {
		return nil
	}

	var events []Event
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		events = append(events, event)
	}

	// Reopen the writer since we closed it
	fl.writer = NewCompressedWriter(fl.bufWriter, fl.compressionType)

	return events
}

// Clear truncates the file and resets the log.
func (fl *FileLog) Clear() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	CloseCompressedWriter(fl.writer, fl.compressionType)
	fl.bufWriter.Flush()
	fl.file.Close()
	os.Truncate(fl.path, 0)

	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		fl.file = f
		fl.bufWriter = bufio.NewWriter(f)
		fl.writer = NewCompressedWriter(fl.bufWriter, fl.compressionType)
	}
}

// SetRealtimeCallback installs a function invoked for every recorded event.
func (fl *FileLog) SetRealtimeCallback(cb func(Event)) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.callback = cb
}

// Close flushes and closes the file
func (fl *FileLog) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if err := CloseCompressedWriter(fl.writer, fl.compressionType); err != nil {
		return err
	}
	if err := fl.bufWriter.Flush(); err != nil {
		return err
	}
	return fl.file.Close()
}
