// Package common contains the logging setup shared by all jsondb packages.
//
// jsondb uses the named, leveled loggers of dragonboat's logger package.
// Every package obtains its logger once via logger.GetLogger(name) using one of
// the Logger* constants defined here. InitLoggers installs a custom factory that
// writes lines in the format
//
//	2025/01/01 12:00:00 INFO  | jstore   | loaded document from data/db.json (3 keys)
//
// to stderr and applies the configured level to all jsondb loggers. Until
// InitLoggers is called the dragonboat default logger is used.
package common
