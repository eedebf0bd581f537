// Package catalog defines the uniform catalog record, the category set and the
// per-session category store shared by the fetch orchestrator and the query
// engine.
package catalog
