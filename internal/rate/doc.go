// Package rate provides the fixed-window request limiter used in front
// of abuse-prone authentication flows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on the first hit in
// the window. Keys are "<prefix>:<client-ip>", so each flow throttles
// per source address independently.
//
// # Fallback
//
// When Redis is unreachable the limiter degrades to an in-process
// counter map rather than failing open or closed arbitrarily. The
// fallback is per-instance and loses state on restart; it exists to
// keep a throttle in place during a cache outage, not to be precise.
package rate
