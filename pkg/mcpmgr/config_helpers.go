package mcpmgr

import "strings"

// Helpers for narrowing ServerTransport values without a type switch at every
// call site.

// TransportOf returns the transport kind of a descriptor, or "" when it has no
// transport.
func TransportOf(d ServerDescriptor) TransportKind {
	if d.Transport == nil {
		return ""
	}
	return d.Transport.Kind()
}

// AsStdio narrows t to *StdioTransport, returning (nil, false) when it does
// not match.
func AsStdio(t ServerTransport) (*StdioTransport, bool) {
	c, ok := t.(*StdioTransport)
	return c, ok
}

// AsSSE narrows t to *SSETransport, returning (nil, false) when it does not
// match.
func AsSSE(t ServerTransport) (*SSETransport, bool) {
	c, ok := t.(*SSETransport)
	return c, ok
}

// EndpointOf describes where a descriptor's server lives: the command line of
// a process-pipe server or the URL of an event-stream server.
func EndpointOf(d ServerDescriptor) string {
	if c, ok := AsStdio(d.Transport); ok {
		return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
	}
	if c, ok := AsSSE(d.Transport); ok {
		return c.URL
	}
	return ""
}
