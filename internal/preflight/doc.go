// Package preflight provides readiness checks for the collection directory
// and the external viewer galman depends on.
//
// These checks run in two contexts:
//   - triage.Run calls RunAll before a review so a missing mpv binary fails
//     fast instead of after an import.
//   - The CLI "galman status" command renders every Result and uses
//     InspectSession to report whether another session holds the collection.
package preflight
