package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/internal/loop"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

const (
	enterAltScreen = "\033[?1049h\033[?25l"
	leaveAltScreen = "\033[?1049l\033[?25h"

	frameInterval = 100 * time.Millisecond
)

// keyAction is what a key press asks the walkthrough to do.
type keyAction int

const (
	keyNone keyAction = iota
	keyAdvance
	keyRain
	keyReset
	keyAutoplay
	keyQuit
)

func actionForKey(b byte) keyAction {
	switch b {
	case 'n', 'N', ' ', '\r', '\n':
		return keyAdvance
	case 'r', 'R':
		return keyRain
	case 'x', 'X':
		return keyReset
	case 'a', 'A':
		return keyAutoplay
	case 'q', 'Q', 0x03, 0x04: // Ctrl+C, Ctrl+D
		return keyQuit
	default:
		return keyNone
	}
}

// readKeys copies bytes from r to keys until r fails. The read blocks, so
// the goroutine running this outlives the command on exit.
func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			keys <- b
		}
		if err != nil {
			return
		}
	}
}

// handleKeys applies key presses to the session on the loop. It calls quit
// and returns on a quit key or when keys is closed.
func handleKeys(ctx context.Context, keys <-chan byte, l *loop.Loop, s *session, quit func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-keys:
			if !ok {
				quit()
				return nil
			}
			var fn func()
			switch actionForKey(b) {
			case keyAdvance:
				fn = func() { s.ctrl.Advance() }
			case keyRain:
				fn = func() { s.ctrl.ApplyStimulus(narrative.StimulusRain) }
			case keyReset:
				fn = func() { s.ctrl.Reset() }
			case keyAutoplay:
				fn = s.toggleAutoplay
			case keyQuit:
				quit()
				return nil
			default:
				continue
			}
			if err := l.Do(ctx, fn); err != nil {
				return nil
			}
		}
	}
}

// renderLoop repaints the frame at ~10fps until ctx is cancelled.
func renderLoop(ctx context.Context, l *loop.Loop, s *session, clk clock.WithTicker, w io.Writer, interactive bool) error {
	ticker := clk.NewTicker(frameInterval)
	defer ticker.Stop()

	spinner := 0
	for {
		var f frame
		if err := l.Do(ctx, func() { f = s.frame(clk.Now(), spinner, interactive) }); err != nil {
			return nil
		}
		width, height := termSize()
		// Raw mode turns off output processing, so lines need their own
		// carriage returns.
		fmt.Fprint(w, strings.ReplaceAll(f.Render(width, height), "\n", "\r\n"))
		spinner++

		select {
		case <-ticker.C():
		case <-ctx.Done():
			return nil
		}
	}
}

// termSize returns the terminal width and height, falling back to 80x24.
func termSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w == 0 || h == 0 {
		return 80, 24
	}
	return w, h
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// sleepCtx sleeps for the given duration or until the context is cancelled.
func sleepCtx(ctx context.Context, clk clock.Clock, d time.Duration) {
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
	case <-ctx.Done():
	}
}
