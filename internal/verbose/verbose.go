// Package verbose defines the diagnostic logger the cmadison packages accept.
package verbose

// Logger receives diagnostic messages. *log.Logger satisfies it, as does the
// command's -verbose switch.
type Logger interface {
	Printf(format string, v ...interface{})
}

type discard struct{}

func (discard) Printf(string, ...interface{}) {}

// Or returns l, or a Logger dropping all messages if l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return discard{}
	}
	return l
}
