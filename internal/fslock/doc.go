// Package fslock provides exclusive locks scoped to an open file, used to make
// "is this file empty, then write" decisions atomic across benchmark processes.
package fslock
