// Package ports declares the lookups the eligibility service depends on.
// Implementations live in the store package; the service depends only on
// these interfaces.
package ports
