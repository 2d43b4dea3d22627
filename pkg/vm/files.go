package vm

import (
	"bufio"
	"os"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// FileHandle is one entry of the OPEN file-handle table spec §4.3.1 lists
// among the VM's state. RANDOM access files additionally carry the FIELD
// layout bound to their record buffer.
type FileHandle struct {
	Number int
	Name   string
	Mode   ast.FileMode
	RecLen int

	f      *os.File
	reader *bufio.Reader
	writer *bufio.Writer

	fields []FieldBinding
	record []byte
}

// FieldBinding is one FIELD-statement slot: a fixed-width window of the
// record buffer bound to a string variable path.
type FieldBinding struct {
	Offset int
	Width  int
	Target *Path
}

// FileTable is the VM's open-file registry, keyed by BASIC file number.
type FileTable struct {
	handles map[int]*FileHandle
}

func NewFileTable() *FileTable { return &FileTable{handles: make(map[int]*FileHandle)} }

func (t *FileTable) Get(number int) (*FileHandle, bool) {
	h, ok := t.handles[number]
	return h, ok
}

func (t *FileTable) Open(number int, name string, mode ast.FileMode, recLen int) error {
	if _, exists := t.handles[number]; exists {
		return errs.NewRuntimeError(errs.KindFileAlreadyOpen, "file number already open")
	}
	var flag int
	switch mode {
	case ast.ModeOutput:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ast.ModeAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default: // Input, Binary, Random
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		return errs.NewRuntimeError(errs.KindFileNotFound, err.Error())
	}
	h := &FileHandle{Number: number, Name: name, Mode: mode, RecLen: recLen, f: f}
	if mode == ast.ModeInput {
		h.reader = bufio.NewReader(f)
	} else {
		h.writer = bufio.NewWriter(f)
	}
	if mode == ast.ModeRandom {
		if recLen <= 0 {
			recLen = 128
		}
		h.RecLen = recLen
		h.record = make([]byte, recLen)
	}
	t.handles[number] = h
	return nil
}

func (t *FileTable) Close(number int) error {
	h, ok := t.handles[number]
	if !ok {
		return errs.NewRuntimeError(errs.KindBadFileNameOrNumber, "file number not open")
	}
	if h.writer != nil {
		h.writer.Flush()
	}
	delete(t.handles, number)
	return h.f.Close()
}

func (t *FileTable) CloseAll() {
	for n := range t.handles {
		t.Close(n)
	}
}

func (h *FileHandle) WriteString(s string) error {
	if h.writer == nil {
		return errs.NewRuntimeError(errs.KindBadFileNameOrNumber, "file not open for output")
	}
	_, err := h.writer.WriteString(s)
	if err == nil {
		err = h.writer.Flush()
	}
	return err
}

func (h *FileHandle) ReadLine() (string, error) {
	if h.reader == nil {
		return "", errs.NewRuntimeError(errs.KindBadFileNameOrNumber, "file not open for input")
	}
	line, err := h.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", errs.NewRuntimeError(errs.KindInputPastEndOfFile, "input past end of file")
	}
	return trimNewline(line), nil
}

func (h *FileHandle) AtEOF() bool {
	if h.reader == nil {
		return true
	}
	_, err := h.reader.Peek(1)
	return err != nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
