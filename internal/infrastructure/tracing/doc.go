/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span. A caller may continue an existing trace by
sending X-Trace-ID and X-Span-ID; the span's identifiers are always echoed
back in the response headers, and handlers can read the trace id from the
request context with TraceIDFrom.

Finished spans are buffered and written to the structured log by a single
collector goroutine. Successful spans log at debug level.

	tracer := tracing.New("soundscape", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
