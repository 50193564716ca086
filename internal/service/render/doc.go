// Package render generates the two text artifacts of an install: the engine
// configuration file and the PM2 process descriptor. Generation is pure
// templating; each run fully overwrites the previous files.
package render
