/*
Package resilience provides a circuit breaker for remote dependencies.

The breaker opens after Threshold consecutive failures. While open, Do
returns ErrCircuitOpen without calling the dependency. After Cooldown the
next call is let through as a trial call: success closes the breaker, failure
opens it again. There are no retries.

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                            |
	                                        [failure]
	                                            v
	                                           Open
*/
package resilience
