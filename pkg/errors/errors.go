// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package errors

import (
	stdliberrors "errors"
	"fmt"
)

var (
	ErrUnsupported = stdliberrors.ErrUnsupported

	As     = stdliberrors.As
	Is     = stdliberrors.Is
	Join   = stdliberrors.Join
	New    = stdliberrors.New
	Unwrap = stdliberrors.Unwrap
)

var (
	ErrIndexOutOfRange  = New("index out of bounds")
	ErrCapacityOverflow = New("capacity overflows addressable memory")
	ErrNegativeCount    = New("negative element count")
	ErrEmptyBacking     = New("backing storage must not be empty")
)

// ContractViolation is the panic value used for programmer errors that the
// containers refuse to recover from: out-of-range unchecked access, impossible
// allocation sizes and zero-length ring storage.
type ContractViolation struct {
	err error
	msg string
}

// NewContractViolation builds a violation wrapping err with a formatted message.
func NewContractViolation(err error, format string, args ...any) *ContractViolation {
	return &ContractViolation{
		err: err,
		msg: fmt.Sprintf(format, args...),
	}
}

func (c *ContractViolation) Error() string {
	return c.msg
}

func (c *ContractViolation) Unwrap() error {
	return c.err
}

// Violate panics with a ContractViolation. It never returns.
func Violate(err error, format string, args ...any) {
	panic(NewContractViolation(err, format, args...))
}

// IsContractViolation reports whether a recovered panic value is a ContractViolation.
func IsContractViolation(recovered any) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var cv *ContractViolation
	return As(err, &cv)
}
