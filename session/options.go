package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/wdotool/internal/input"
	"github.com/bnema/wdotool/internal/sampler"
)

// Selection decides which output a screenshot uses when no name is given.
type Selection string

const (
	// SelectFirst uses the first output the compositor advertised.
	SelectFirst Selection = "first"
	// SelectStrict requires a name when there is more than one output.
	SelectStrict Selection = "strict"
)

// ParseSelection validates a configured selection policy. Empty means
// first.
func ParseSelection(s string) (Selection, error) {
	switch sel := Selection(strings.ToLower(strings.TrimSpace(s))); sel {
	case "":
		return SelectFirst, nil
	case SelectFirst, SelectStrict:
		return sel, nil
	default:
		return "", fmt.Errorf("unknown output selection %q (want first or strict)", s)
	}
}

type options struct {
	display       string
	keymap        input.KeymapSource
	keymapFile    string
	output        string
	pointerOutput string
	selection     Selection
	overlayCursor bool
	sampler       *sampler.Sampler
	sleep         func(time.Duration)
}

// Option configures Open.
type Option func(*options)

// WithDisplay connects to the named display or socket path instead of
// $WAYLAND_DISPLAY.
func WithDisplay(name string) Option {
	return func(o *options) { o.display = name }
}

// WithKeymap selects the virtual keyboard keymap. path is only used with
// KeymapFile.
func WithKeymap(source input.KeymapSource, path string) Option {
	return func(o *options) {
		o.keymap = source
		o.keymapFile = path
	}
}

// WithDefaultOutput names the output used by Screenshot("").
func WithDefaultOutput(name string) Option {
	return func(o *options) { o.output = name }
}

// WithPointerOutput maps absolute pointer motion onto the named output
// instead of the whole layout. It needs version 2 of the virtual pointer
// manager.
func WithPointerOutput(name string) Option {
	return func(o *options) { o.pointerOutput = name }
}

// WithSelection sets the policy for unnamed screenshots.
func WithSelection(s Selection) Option {
	return func(o *options) { o.selection = s }
}

// WithOverlayCursor composites the cursor into screenshots.
func WithOverlayCursor(overlay bool) Option {
	return func(o *options) { o.overlayCursor = overlay }
}

// WithSampler draws ranged parameters from s.
func WithSampler(s *sampler.Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithSleep replaces time.Sleep for button and key holds.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) { o.sleep = sleep }
}
