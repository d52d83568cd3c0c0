package errorz

import (
	"strings"
)

// Keyed ties an error to the input field that caused it.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	if k.Key == "" {
		return k.Err.Error()
	}
	return k.Key + " (" + k.Err.Error() + ")"
}

func (k Keyed) Unwrap() error {
	return k.Err
}

// InvalidInput collects the problems found in a single piece of input,
// such as a submitted form.
type InvalidInput []error

// Add records err for key.
func (e *InvalidInput) Add(key string, err error) {
	*e = append(*e, Keyed{Key: key, Err: err})
}

// Err returns nil when nothing was added, so validation funcs
// can end with `return invalid.Err()`.
func (e InvalidInput) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Keys lists the fields that failed, in the order they were added.
// Errors without a key are skipped.
func (e InvalidInput) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, err := range e {
		if k, ok := err.(Keyed); ok && k.Key != "" {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// Error renders all problems on a single line, which keeps log output tidy.
func (e InvalidInput) Error() string {
	parts := make([]string, 0, len(e))
	for _, err := range e {
		parts = append(parts, err.Error())
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e InvalidInput) Unwrap() []error {
	return e
}
