package dataframe

import "errors"

var (
	// ErrDrainTooLarge is returned by Drain when n exceeds the head
	// frame's remaining byte count.
	ErrDrainTooLarge = errors.New("dataframe: drain exceeds head frame's remaining bytes")

	// ErrDrainOnEmpty is returned by Drain(n) for n != 0 against empty
	// storage.
	ErrDrainOnEmpty = errors.New("dataframe: drain on empty storage must be zero")
)
