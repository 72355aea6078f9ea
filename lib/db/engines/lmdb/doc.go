// Package lmdb implements the LMDB style engine: one environment holding a
// bounded set of named sub-databases, with every operation running in its own
// explicit read or write transaction.
//
// The environment is a bbolt file. In the default mode the configured path is
// a directory containing "data.mdb", with db.EnvNoSubdir the path is the data
// file itself. Each named sub-database is a bucket; db.Config.MaxNamespaces
// caps how many buckets may exist.
//
// Selecting the active sub-database is lazy: selecting the name that is
// already active does not open a transaction. A failed selection keeps the
// previous sub-database active.
package lmdb
