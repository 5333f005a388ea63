//go:build linux

package watch

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE

func (w *Watcher) startNative() error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify_init failed: %v", err)
	}
	dir, name := filepath.Split(w.path)
	if _, err := unix.InotifyAddWatch(fd, dir, inotifyMask); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to watch %s: %v", dir, err)
	}
	w.closeFn = func() error { return unix.Close(fd) }
	go w.readEvents(fd, name)
	return nil
}

func (w *Watcher) readEvents(fd int, name string) {
	defer close(w.stopped)
	buf := make([]byte, (unix.SizeofInotifyEvent+unix.NAME_MAX+1)*16)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		select {
		case <-w.done:
			return
		default:
		}
		n, err := unix.Poll(fds, 100)
		if err != nil && err != unix.EINTR {
			return
		}
		if n <= 0 {
			continue
		}
		n, err = unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			raw := buf[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+int(event.Len)]
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if event.Mask&inotifyMask != 0 && eventName(raw) == name {
				w.changed()
			}
		}
	}
}

// eventName trims the NUL padding inotify appends to names.
func eventName(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
