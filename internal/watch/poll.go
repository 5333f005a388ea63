package watch

import (
	"os"
	"time"
)

const pollInterval = 200 * time.Millisecond

func (w *Watcher) startPolling(every time.Duration) {
	last := stamp(w.path)
	go func() {
		defer close(w.stopped)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				if now := stamp(w.path); !now.Equal(last) {
					last = now
					w.changed()
				}
			}
		}
	}()
}

// stamp is the zero time while the file is missing, so a delete followed
// by a recreate counts as a change.
func stamp(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime().Add(time.Duration(info.Size()))
}
