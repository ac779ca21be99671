// Package pipeline resolves many pages concurrently.
//
// Pages share nothing: every job loads its own page, the resolver keeps no
// per-page state, and each result is stored by the job that produced it. A
// page that fails to load, resolve or store is reported and the rest of the
// batch continues.
package pipeline
