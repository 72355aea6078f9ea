// Package upscaledb implements the UpscaleDB style engine on pebble. Databases
// are addressed by numeric handles between 1 and 65535.
//
// All databases share one pebble store. Every key is prefixed with the 2 byte
// big endian handle of its database, handle 0 is reserved for the catalog of
// created databases. Iteration uses the prefix bounds, so a database only ever
// sees its own keys.
//
// The engine has no native key counter; DBKCOUNT walks the database.
package upscaledb
