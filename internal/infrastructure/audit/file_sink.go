package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
)

const timestampLayout = "02.01.2006 15:04:05.000000"

// FileSink appends one line per exchange-command invocation. The
// destination opens lazily exactly once; with no path configured the lines
// go to stdout. Appends are serialized, nothing else needs locking.
type FileSink struct {
	path string

	once    sync.Once
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	openErr error
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Record(_ context.Context, rec domain.AuditRecord) error {
	s.once.Do(s.open)
	if s.openErr != nil {
		return s.openErr
	}

	line := fmt.Sprintf("At %s: %s: %s\n",
		rec.Timestamp.Format(timestampLayout), rec.Actor, rec.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, line)
	return err
}

func (s *FileSink) open() {
	if s.path == "" {
		s.out = os.Stdout
		return
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.openErr = err
		return
	}
	s.file = file
	s.out = file
}

func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
