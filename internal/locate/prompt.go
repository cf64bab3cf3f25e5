package locate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// TerminalPrompter reads a path from a line of input
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin and stderr
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (t *TerminalPrompter) PromptPath(title string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", title)

	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Errorf("reading path: %w", err)
	}
	line = strings.Trim(strings.TrimSpace(line), `"'`)
	if line == "" {
		return "", errors.New("no path entered")
	}
	if strings.HasPrefix(line, "~"+string(filepath.Separator)) || line == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			line = filepath.Join(home, strings.TrimPrefix(line, "~"))
		}
	}
	return filepath.Clean(line), nil
}
