// Package internal contains helper utilities that are intentionally
// private to the module, including secure random generation.
//
// Sub-packages:
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - metrics — lock-free engine counters
package internal
