//go:build linux

package hidsrc

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hidrawReportDescriptor mirrors struct hidraw_report_descriptor from
// <linux/hidraw.h>: a 4-byte length followed by a fixed 4096-byte buffer.
type hidrawReportDescriptor struct {
	Size  uint32
	Value [4096]byte
}

const (
	hidiocgrdescsize = 0x80044801 // HIDIOCGRDESCSIZE, _IOR('H', 0x01, int)
	hidiocgrdesc      = 0x90044802 // HIDIOCGRDESC, _IOR('H', 0x02, struct hidraw_report_descriptor)
)

// usbmonSource reads report descriptors and input reports from
// /dev/hidraw* nodes.
type usbmonSource struct {
	mu    sync.Mutex
	files map[DeviceID]*os.File
}

// Open returns a Source over /dev/hidraw* nodes. Its Devices method globs
// the nodes and keeps whichever are present and readable; a node the
// caller can't open (permissions, already claimed by the kernel HID
// driver) is skipped, not fatal.
func Open() (Source, error) {
	return &usbmonSource{files: make(map[DeviceID]*os.File)}, nil
}

func (s *usbmonSource) Devices() ([]Device, error) {
	nodes, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, err
	}

	var devices []Device
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, node := range nodes {
		f, err := os.OpenFile(node, os.O_RDWR, 0)
		if err != nil {
			continue
		}
		desc, err := readReportDescriptor(f)
		if err != nil {
			_ = f.Close()
			continue
		}
		id := DeviceID(node)
		s.files[id] = f
		devices = append(devices, Device{ID: id, Descriptor: desc})
	}
	return devices, nil
}

func readReportDescriptor(f *os.File) ([]byte, error) {
	fd := f.Fd()

	size, err := unix.IoctlGetInt(int(fd), hidiocgrdescsize)
	if err != nil {
		return nil, fmt.Errorf("hidsrc: HIDIOCGRDESCSIZE: %w", err)
	}

	var rd hidrawReportDescriptor
	rd.Size = uint32(size)
	if err := ioctlPointer(fd, hidiocgrdesc, unsafe.Pointer(&rd)); err != nil {
		return nil, fmt.Errorf("hidsrc: HIDIOCGRDESC: %w", err)
	}
	return append([]byte(nil), rd.Value[:size]...), nil
}

func ioctlPointer(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *usbmonSource) Reports() (<-chan Report, error) {
	out := make(chan Report)

	s.mu.Lock()
	files := make(map[DeviceID]*os.File, len(s.files))
	for id, f := range s.files {
		files[id] = f
	}
	s.mu.Unlock()

	for id, f := range files {
		go func(id DeviceID, f *os.File) {
			buf := make([]byte, 64)
			for {
				n, err := f.Read(buf)
				if err != nil {
					return
				}
				out <- Report{Device: id, Data: append([]byte(nil), buf[:n]...)}
			}
		}(id, f)
	}
	return out, nil
}

func (s *usbmonSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = make(map[DeviceID]*os.File)
	return firstErr
}
