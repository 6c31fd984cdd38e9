// Package logging provides structured logging for the cofre CLI built on
// log/slog.
//
// The default text handler is TTY-aware: it colorizes output when writing
// to a terminal (respecting NO_COLOR and TERM=dumb) and masks password
// attributes so secrets never reach log files. A JSON handler is available
// for machine consumption, and MultiHandler fans records out to both a
// terminal and a log file when --log-file is set.
package logging
