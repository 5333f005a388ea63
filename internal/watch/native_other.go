//go:build !linux

package watch

import "errors"

func (w *Watcher) startNative() error {
	return errors.New("no native watcher on this platform")
}
