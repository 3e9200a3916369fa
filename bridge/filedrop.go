package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDrop is the degraded fallback transport for hosts whose sandbox
// forbids sockets: the request is dropped at a well-known path and the
// response is picked up from a second path, which is deleted after a
// successful read. It carries none of the socket transport's correctness
// guarantees and exists only so the bridge is not useless without one.
type FileDrop struct {
	requestPath  string
	responsePath string
	open         bool
}

func NewFileDrop(dir string) *FileDrop {
	return &FileDrop{
		requestPath:  filepath.Join(dir, "bridge_request.json"),
		responsePath: filepath.Join(dir, "bridge_response.json"),
	}
}

func (f *FileDrop) Connected() bool { return f.open }

// Connect verifies the drop directory is writable.
func (f *FileDrop) Connect() error {
	if f.open {
		return nil
	}
	dir := filepath.Dir(f.requestPath)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("file drop dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("file drop path %s is not a directory", dir)
	}
	f.open = true
	return nil
}

func (f *FileDrop) SendLine(line string) error {
	if !f.open {
		return ErrNotConnected
	}
	if strings.ContainsRune(line, '\n') {
		return errors.New("message contains an unescaped newline")
	}
	if err := os.WriteFile(f.requestPath, []byte(line+"\n"), 0o644); err != nil {
		f.open = false
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// ReceiveLine returns ErrTimeout while no response file exists yet, mapping
// "the peer has not answered" onto the same non-fatal outcome the socket
// transport uses. The file is deleted only after a successful read.
func (f *FileDrop) ReceiveLine() (string, error) {
	if !f.open {
		return "", ErrNotConnected
	}
	data, err := os.ReadFile(f.responsePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTimeout
		}
		f.open = false
		return "", fmt.Errorf("receive: %w", err)
	}
	if err := os.Remove(f.responsePath); err != nil {
		f.open = false
		return "", fmt.Errorf("receive cleanup: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (f *FileDrop) Close() error {
	f.open = false
	return nil
}
