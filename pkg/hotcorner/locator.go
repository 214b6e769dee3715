package hotcorner

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Screen size used when the display geometry cannot be read
const (
	FallbackWidth  = 1920
	FallbackHeight = 1080
)

// Locator reports the pointer position and screen size
type Locator interface {
	Pointer() (x, y int, err error)
	Screen() (width, height int)
}

// CommandExecutor runs an external command and returns its stdout
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
}

type execExecutor struct{}

func (execExecutor) Execute(name string, args ...string) ([]byte, error) {
	// #nosec G204 - only fixed xdotool invocations are issued
	return exec.Command(name, args...).Output()
}

// XdotoolLocator reads pointer and screen state through xdotool
type XdotoolLocator struct {
	exec CommandExecutor
}

// NewXdotoolLocator creates a locator that shells out to xdotool.
func NewXdotoolLocator() *XdotoolLocator {
	return &XdotoolLocator{exec: execExecutor{}}
}

// NewXdotoolLocatorWithExecutor creates a locator that runs xdotool through
// executor
func NewXdotoolLocatorWithExecutor(executor CommandExecutor) *XdotoolLocator {
	return &XdotoolLocator{exec: executor}
}

// Pointer returns the current pointer position.
func (l *XdotoolLocator) Pointer() (int, int, error) {
	out, err := l.exec.Execute("xdotool", "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read pointer location: %w", err)
	}

	var x, y int
	var haveX, haveY bool
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "X":
			x, haveX = n, true
		case "Y":
			y, haveY = n, true
		}
	}
	if !haveX || !haveY {
		return 0, 0, fmt.Errorf("unexpected xdotool output: %q", out)
	}
	return x, y, nil
}

// Screen returns the display size, or the fallback size when xdotool fails.
func (l *XdotoolLocator) Screen() (int, int) {
	out, err := l.exec.Execute("xdotool", "getdisplaygeometry")
	if err != nil {
		return FallbackWidth, FallbackHeight
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return FallbackWidth, FallbackHeight
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return FallbackWidth, FallbackHeight
	}
	return w, h
}
