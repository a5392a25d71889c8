// Package review runs the interactive triage loop.
//
// A Session takes a snapshot of the airlock as its worklist, hands it to a
// viewer, and turns each accept or reject event into exactly one collection
// transition on the file the viewer has on screen before advancing it. Quitting, closing the viewer, or
// cancelling the context leaves every undecided file in the airlock.
//
// Slideshow plays the gallery back in random order and reuses the same viewer
// abstraction without making any decisions.
package review
