package transport

import (
	"fmt"
	"reflect"

	"github.com/kbukum/workerbridge/errors"
)

// CheckTransfer validates a transfer list: no nil entries, no values that
// cannot be compared as handles, no duplicates and nothing already detached.
func CheckTransfer(list []Transferable) error {
	for i, t := range list {
		if t == nil {
			return errors.DataClone("transfer list holds a nil entry").WithDetail("index", i)
		}
		if !reflect.TypeOf(t).Comparable() {
			return errors.DataClone(fmt.Sprintf("transferable %T is not a comparable handle", t)).WithDetail("index", i)
		}
		for j := range i {
			same, err := sameHandle(list[j], t)
			if err != nil {
				return err.WithDetail("index", i)
			}
			if same {
				return errors.DataClone("transferable appears more than once in the transfer list").WithDetail("index", i)
			}
		}
		if t.Detached() {
			return errors.DataClone("transferable is already detached").WithDetail("index", i)
		}
	}
	return nil
}

// sameHandle compares two entries. Comparable types can still hold
// incomparable values in interface fields, which makes == panic.
func sameHandle(a, b Transferable) (same bool, err *errors.AppError) {
	defer func() {
		if r := recover(); r != nil {
			same = false
			err = errors.DataClone(fmt.Sprintf("transferable %T is not a comparable handle", b))
		}
	}()
	return a == b, nil
}

// Detach moves ownership of every listed transferable away from the sender.
// Byte transports call it after the payload has been written.
func Detach(list []Transferable) error {
	for _, t := range list {
		if _, err := t.Transfer(); err != nil {
			return err
		}
	}
	return nil
}
