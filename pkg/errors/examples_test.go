package errors_test

import (
	"fmt"

	"github.com/agentstation/lithic/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := errors.NewCloneError("acme/schemas", "main", errors.New("reference not found"))

	if errors.IsSourceFailure(err) {
		fmt.Println("source failed, continuing with the others")
	}

	// Output: source failed, continuing with the others
}

// Example_runFailure demonstrates inspecting the aggregate error of a run.
func Example_runFailure() {
	err := errors.NewRunFailure([]error{
		&errors.ReconciliationError{Kind: errors.KindExtra, Output: "models", Path: "stale.py"},
	})

	var rf *errors.RunFailure
	if errors.As(err, &rf) {
		for _, f := range rf.Failures {
			fmt.Println(f)
		}
	}

	// Output: extra file stale.py in models
}
