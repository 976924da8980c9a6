// Package database stores the history of scrape runs in SQLite.
//
// Every run is saved with its per-source outcome and the pairs it accepted,
// so later runs can be compared tab by tab. The database lives in a single
// file under the XDG data directory and is opened through modernc.org/sqlite,
// which needs no cgo.
package database
