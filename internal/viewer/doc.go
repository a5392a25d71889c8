// Package viewer defines the boundary between galman and the external media
// viewer that presents files and collects the user's decisions.
//
// A Viewer loads a playlist, streams decision events tagged with the file on
// screen, reports that file on request, drops or skips the current entry, and
// closes. MPV implements it by running mpv with a generated key map and talking
// to its JSON IPC socket.
package viewer
