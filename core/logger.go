package core

// Logger is any service that can report messages. Args may hold errors,
// extra data maps and at most one Person, the user the message is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the caller of a request in log reports.
type Person struct {
	ID       string
	Username string
	Email    string
	SchoolID string
	Roles    []string
}
