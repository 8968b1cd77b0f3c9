package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Write pushes bytes through a buffered writer into the given handle and
// flushes. Caller owns file lifecycle, including Sync.
func Write(file *os.File, data []byte) error {
	writer := bufio.NewWriter(file)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Read reads up to length bytes starting from offset. A short result means
// the file ended first.
func Read(file *os.File, offset int64, length int) ([]byte, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	reader := bufio.NewReader(file)
	buf := make([]byte, length)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf[:n], nil
}
