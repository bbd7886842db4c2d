package controller

import "fmt"

// FatalInitError marks a start-up failure the bridge must not run past.
type FatalInitError struct {
	Component string
	Err       error
}

func (e *FatalInitError) Error() string {
	return fmt.Sprintf("%s init: %v", e.Component, e.Err)
}

func (e *FatalInitError) Unwrap() error { return e.Err }
