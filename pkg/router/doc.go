// Package router runs the per-query pipeline: it asks the oracle for a
// server, optionally fills one of that server's prompt templates, asks for a
// tool and its arguments, invokes the tool through the connection manager and
// renders the first content item of the result as text.
//
// Every query produces a string. Selection misses are plain outcomes, and
// every other failure is reported as "Failed to process query: <reason>".
// Queries are processed one at a time.
package router
