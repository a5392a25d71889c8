// Package logs reads galman's per-run JSON log files for the `galman logs`
// command: it finds the newest run, returns its last lines, follows it while
// a session is writing, and renders records in a compact one-line form.
package logs
