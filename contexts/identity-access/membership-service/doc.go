// Package membership answers whether a user is an active member of a
// society. Governance consults it as a read-only oracle before accepting a
// ballot and when sizing the electorate for vote statistics.
//
// Layering follows the other modules: domain, application, ports, adapters
// and transport. Lookups are cache-first with a TTL; enrolment changes
// invalidate the cached answer.
package membership
