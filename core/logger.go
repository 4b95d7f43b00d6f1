package core

// Logger is the application logger.
// args may hold errors, maps of extra data and the acting session.Session (attached as the person on error trackers).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
