package errors_test

import (
	"fmt"
	"net/http"

	"github.com/agentstation/hubmap/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "item",
		ID:       "imageomics/unknown",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Resource not found")
	}

	// Output: Resource not found
}

// Example_fetchError demonstrates how a failed category load is reported.
func Example_fetchError() {
	cause := errors.NewAPIError("github", http.StatusServiceUnavailable, "upstream down")
	err := errors.NewFetchError("code", "github", cause)

	if errors.IsFetchFailed(err) && errors.IsSourceUnavailable(err) {
		fmt.Println("registry unavailable - category left unloaded")
	}

	// Output: registry unavailable - category left unloaded
}
