// Package dashboard is the terminal front end: a Bubble Tea model that feeds
// transport events and ticks into the scheduler, and a Display that receives
// the scheduler's flushed updates and renders GPU cards, a detail view, and
// the connection status line.
package dashboard
