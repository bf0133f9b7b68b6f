package preprocess

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// AmbiguityError reports component names a content file invokes without an
// import while more than one file defines them.
type AmbiguityError struct {
	File      string
	Names     []string
	Locations map[string][]string
}

func (e *AmbiguityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous component name(s) %s in %s", strings.Join(e.Names, ", "), e.File)
	for _, name := range e.Names {
		if locs := e.Locations[name]; len(locs) > 0 {
			fmt.Fprintf(&b, "; %s is defined in %s", name, strings.Join(locs, " and "))
		}
	}
	return b.String()
}

// Collector accumulates content errors across files. The bundler swallows
// errors raised inside its plugins, so the build polls the collector after
// each bundling phase instead.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records err. Errors already recorded for the same file and message
// are ignored so a file compiled once per target is reported once.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.errs {
		if existing.Error() == err.Error() {
			return
		}
	}
	c.errs = append(c.errs, err)
}

// Errors returns the recorded errors sorted by message.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Error() < out[j].Error() })
	return out
}

// Len returns the number of recorded errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Reset discards all recorded errors.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
}

// Err returns nil when nothing was collected, otherwise a content error
// listing every recorded error.
func (c *Collector) Err() error {
	errs := c.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	ambiguous := false
	for _, err := range errs {
		msgs = append(msgs, err.Error())
		var ae *AmbiguityError
		if errors.As(err, &ae) {
			ambiguous = true
		}
	}
	b := foundationerrors.ContentError(strings.Join(msgs, "\n")).
		WithCause(errors.Join(errs...)).
		WithContext("count", len(errs))
	if ambiguous {
		b = b.WithHint("Import the intended component explicitly, or rename one of the colliding files.")
	}
	return b.Build()
}
