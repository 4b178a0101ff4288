// Package store holds the benchmark history in memory and mirrors it to
// optional sinks: a SQL database (SQLite or PostgreSQL) that survives
// restarts and a data.js file served to the gh-pages dashboard. WatchFile
// reloads the store when the data.js file is rewritten by another writer.
package store
