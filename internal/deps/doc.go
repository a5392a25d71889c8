// Package deps reports on the external programs galman shells out to. The only
// hard requirement today is the mpv media viewer.
package deps
