// Package audit records authentication outcomes. Recording is best-effort:
// a failing sink is logged and never fails the request that produced the event.
package audit
