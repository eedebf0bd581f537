package constants_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/agentstation/hubmap/pkg/constants"
)

// Example demonstrates the catalog defaults.
func Example() {
	fmt.Printf("max items per category: %d\n", constants.DefaultMaxItems)
	fmt.Printf("freshness window: %v\n", time.Duration(constants.DefaultFreshnessDays)*24*time.Hour)
	fmt.Println(constants.PlaceholderDescription)
	// Output:
	// max items per category: 100
	// freshness window: 720h0m0s
	// No description provided.
}

// Example_timeouts demonstrates timeout constants
func Example_timeouts() {
	client := &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
	}
	fmt.Printf("HTTP timeout: %v\n", client.Timeout)
	fmt.Printf("category load timeout: %v\n", constants.CategoryLoadTimeout)
	// Output:
	// HTTP timeout: 30s
	// category load timeout: 2m0s
}
