// Package devloop rebuilds a project when its sources change.
//
// A Watcher turns filesystem events into Loop.Changed calls. The Loop
// debounces bursts of changes into a single rebuild, never runs two
// rebuilds at once, and notifies connected browsers after a successful one.
package devloop
