// Package triage wires the importer, the collection store, and a review
// session into the galman workflows: import then review, import only, review
// only, and the gallery slideshow.
package triage
