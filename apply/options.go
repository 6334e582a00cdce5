package apply

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Order determines the order of records in the output
type Order int

const (
	// OrderKeep writes records in the order of the source index
	OrderKeep Order = iota
	// OrderSort writes records sorted by name
	OrderSort
	// OrderData writes records in the order their programs finish
	OrderData
)

var orderNames = []string{"keep", "sort", "data"}

func (o Order) String() string {
	if o < 0 || int(o) >= len(orderNames) {
		return fmt.Sprintf("Order(%d)", int(o))
	}
	return orderNames[o]
}

// ParseOrder parses "keep", "sort" or "data"
func ParseOrder(s string) (Order, error) {
	for i, name := range orderNames {
		if strings.EqualFold(s, name) {
			return Order(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown order '%s', must be one of: %s", ErrInvalidOptions, s, strings.Join(orderNames, ", "))
}

// ErrorPolicy determines what happens when a program exits with a non-zero code
type ErrorPolicy int

const (
	// OnErrorExit fails the whole run on the first failure
	OnErrorExit ErrorPolicy = iota
	// OnErrorIgnore leaves the record out of the output
	OnErrorIgnore
	// OnErrorBlank writes an empty record
	OnErrorBlank
	// OnErrorOriginal writes the record's original payload
	OnErrorOriginal
)

var errorPolicyNames = []string{"exit", "ignore", "blank", "original"}

func (p ErrorPolicy) String() string {
	if p < 0 || int(p) >= len(errorPolicyNames) {
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
	return errorPolicyNames[p]
}

// ParseErrorPolicy parses "exit", "ignore", "blank" or "original"
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	for i, name := range errorPolicyNames {
		if strings.EqualFold(s, name) {
			return ErrorPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown error policy '%s', must be one of: %s", ErrInvalidOptions, s, strings.Join(errorPolicyNames, ", "))
}

type Options struct {
	// number of programs running in parallel. 1 if 0
	Jobs    int
	Order   Order
	OnError ErrorPolicy
	// if true, logs the name of every processed record
	Verbose bool
	// failures of the program are reported here. os.Stderr if nil
	Diag io.Writer
}

// Validate returns ErrInvalidOptions for settings that can't be used
func (o *Options) Validate() error {
	if o.Jobs < 0 {
		return fmt.Errorf("%w: number of jobs must be positive, got %d", ErrInvalidOptions, o.Jobs)
	}
	if o.Order < OrderKeep || o.Order > OrderData {
		return fmt.Errorf("%w: invalid order %s", ErrInvalidOptions, o.Order)
	}
	if o.OnError < OnErrorExit || o.OnError > OnErrorOriginal {
		return fmt.Errorf("%w: invalid error policy %s", ErrInvalidOptions, o.OnError)
	}
	// dropping records would shift positions of the following records
	if o.Order == OrderKeep && o.OnError == OnErrorIgnore {
		return fmt.Errorf("%w: order '%s' can't be combined with error policy '%s'", ErrInvalidOptions, o.Order, o.OnError)
	}
	return nil
}

func (o *Options) withDefaults() Options {
	res := *o
	if res.Jobs < 1 {
		res.Jobs = 1
	}
	if res.Diag == nil {
		res.Diag = os.Stderr
	}
	return res
}
