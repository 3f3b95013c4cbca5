package simplefs

import "log"

// Option configures a Filesystem at Format or Open time.
type Option func(*Filesystem) error

// WithLogger overrides the logger used for diagnostic output. The
// default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(fs *Filesystem) error {
		fs.log = l
		return nil
	}
}
