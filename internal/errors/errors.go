// Package errors defines the structured error types shared by the engine,
// the scene loader and the CLI, plus a collector for reporting many errors
// from one run.
package errors

import (
	"errors"
	"sync"
)

// Collector gathers errors from a multi-step run such as a scene replay.
type Collector struct {
	errs  []error
	mutex sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{errs: make([]error, 0)}
}

// Add records err. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errs = append(c.errs, err)
}

// Errors returns a copy of the collected errors.
func (c *Collector) Errors() []error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]error, len(c.errs))
	copy(result, c.errs)
	return result
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errs) > 0
}

// ByType returns the collected errors of one category.
func (c *Collector) ByType(t ErrorType) []error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []error
	for _, err := range c.errs {
		if IsType(err, t) {
			out = append(out, err)
		}
	}
	return out
}

// Err joins everything collected into one error, or nil.
func (c *Collector) Err() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return errors.Join(c.errs...)
}

// Clear clears all errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errs = c.errs[:0]
}
