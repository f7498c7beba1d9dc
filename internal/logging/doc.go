// Package logging assembles the slog loggers used by the mp4edit tools.
//
// It owns the console/JSON handler choice and level parsing, and carries a
// logger through context.Context so library code can log without taking a
// logger argument. Library code only logs at debug level.
package logging
