// Package processor drains the LiftUpdates folder of a Language Forge server.
//
// For every project with pending updates it makes sure a merge-work copy of
// the project's LIFT file exists, merges each sha's updates into it in sha
// order, and publishes the result back to the project's WebWork folder. Each
// merge is recorded in the journal; a failing project is put on hold and
// left alone until it is released.
package processor
