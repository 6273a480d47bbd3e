// Package output provides formatters for study result tables in various
// output formats (plain, pretty, json, yaml, csv, etc.).
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, table); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// NullText is how human-oriented formatters render a null output.
const NullText = "NaN"

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted table to the buffer.
	Format(w *bytes.Buffer, t *types.Table) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// cell renders a column for a row, using null for missing outputs.
func cell(r *types.Row, col string, null string) string {
	if v, ok := r.Inputs[col]; ok {
		return v.String()
	}
	if col == "status" {
		return string(r.Status)
	}
	if v, ok := r.Output(col); ok {
		return formatNumber(v)
	}
	return null
}

// formatNumber renders an output with up to six significant decimals,
// the way a dataframe prints floats.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
