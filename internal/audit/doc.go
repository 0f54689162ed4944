// Package audit implements async event dispatching for
// security-relevant operations.
//
// The [Dispatcher] is a buffered relay between the engine and a
// caller-supplied [Sink], with drop-if-full or block-if-full
// semantics. It owns buffering and delivery only; deciding which
// events to emit is the engine's job.
package audit
