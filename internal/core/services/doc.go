// Package services contains the application core: orchestration logic
// that drives the ports without knowing about concrete adapters.
package services
