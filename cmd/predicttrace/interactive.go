package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// stepReader pauses the trace between decisions on an operator's keypress:
// Pause blocks on a GNU readline instance for one line of input (any text,
// or just Enter) before letting the caller proceed.
type stepReader struct {
	rl *readline.Instance
}

// newStepReader initializes a readline instance for interactive stepping.
func newStepReader() (*stepReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "(predicttrace) ",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}
	return &stepReader{rl: rl}, nil
}

// Pause prints msg and blocks until the operator presses Enter (or types any
// line and presses Enter); EOF on the readline stream (Ctrl-D) is treated the
// same as Enter so a piped/non-interactive session doesn't hang.
func (s *stepReader) Pause(msg string) {
	s.rl.SetPrompt(fmt.Sprintf("[%s] press enter to continue> ", msg))
	line, err := s.rl.Readline()
	if err != nil && err != io.EOF {
		return
	}
	_ = strings.TrimSpace(line)
}

// Close tears down the readline instance.
func (s *stepReader) Close() error {
	return s.rl.Close()
}
