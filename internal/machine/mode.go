package machine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMode is returned when a caller passes a mode outside Closed, Open and Denied.
var ErrInvalidMode = errors.New("invalid machine mode")

// Mode is the externally visible operational state of the dispenser.
type Mode int

const (
	Closed Mode = iota
	Open
	Denied
)

const (
	DefaultOpenWindow   = 30 * time.Second
	DefaultDeniedWindow = 5 * time.Second
)

var modeNames = map[Mode]string{
	Closed: "closed",
	Open:   "open",
	Denied: "denied",
}

// ParseMode converts the wire name of a mode. "underage" is kept as an alias of
// "denied" for older front-ends.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed":
		return Closed, nil
	case "open":
		return Open, nil
	case "denied", "underage":
		return Denied, nil
	}
	return Closed, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Windows holds how long each non-default mode stays active before reverting to Closed.
type Windows struct {
	Open   time.Duration
	Denied time.Duration
}

// DefaultWindows returns the 30s open / 5s denied windows.
func DefaultWindows() Windows {
	return Windows{Open: DefaultOpenWindow, Denied: DefaultDeniedWindow}
}

// For returns the window armed when entering m. Closed has no window.
func (w Windows) For(m Mode) time.Duration {
	switch m {
	case Open:
		return w.Open
	case Denied:
		return w.Denied
	}
	return 0
}

func (w Windows) withDefaults() Windows {
	if w.Open <= 0 {
		w.Open = DefaultOpenWindow
	}
	if w.Denied <= 0 {
		w.Denied = DefaultDeniedWindow
	}
	return w
}
