// Package storage defines the key-value substrate interface consumed by
// the sync engine, with implementations under memory (in-process hub,
// models cross-tab web storage), badgerstore (persistent, Badger-backed),
// and filestore (one file per key, fsnotify change detection).
package storage
