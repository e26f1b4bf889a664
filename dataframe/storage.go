package dataframe

import "golang.org/x/sys/unix"

// Storage is an ordered queue of pending-send frames plus a running byte
// count. It is not safe for concurrent use; callers (tcp.Socket) serialize
// access under their own lock.
//
// The backing array grows and shrinks geometrically rather than relying on
// Go's append growth policy directly, matching the admission/eviction
// policy this type is modeled on: a full array grows to (cap<<1)|1, and
// once usage drops below one quarter of capacity the array is reallocated
// to twice the number of frames in use.
type Storage struct {
	frames []Frame
	size   int64
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{}
}

// Size returns the sum of (length-offset) across every frame currently
// queued.
func (s *Storage) Size() int64 {
	return s.size
}

// IsEmpty reports whether the queue holds no frames.
func (s *Storage) IsEmpty() bool {
	return len(s.frames) == 0
}

// Head returns a copy of the head frame, for callers (tcp.Socket's flush
// loop) that need to inspect its Kind/Data/FD/Offset/Length to perform a
// send or sendfile call. The copy shares the Heap/Mapped frame's
// underlying Data array, so slicing it is safe; mutating it is not.
func (s *Storage) Head() (Frame, bool) {
	if s.IsEmpty() {
		return Frame{}, false
	}
	return s.frames[0], true
}

func (s *Storage) grow() {
	used := len(s.frames)
	if used < cap(s.frames) {
		return
	}
	newCap := (cap(s.frames) << 1) | 1
	tmp := make([]Frame, used, newCap)
	copy(tmp, s.frames)
	s.frames = tmp
}

func (s *Storage) maybeShrink() {
	used := len(s.frames)
	c := cap(s.frames)
	if c > 0 && used < c/4 {
		newCap := used * 2
		tmp := make([]Frame, used, newCap)
		copy(tmp, s.frames)
		s.frames = tmp
	}
}

// Add admits a frame into the queue. A frame with Offset==Length
// contributes zero bytes and is ignored without being released. File
// frames that are not ReadOnly are privately mmap'd and installed as a
// Mapped frame with FreeOnErr set; heap frames that are not ReadOnly are
// copied into a private buffer; everything else (ReadOnly, of any Kind)
// is appended by value and remains caller-owned.
func (s *Storage) Add(in Frame) error {
	if in.exhausted() {
		return nil
	}

	switch {
	case in.Kind == File && in.Flags&ReadOnly == 0:
		data, err := unix.Mmap(in.FD, 0, in.Length, unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			if in.Flags&FreeOnErr != 0 && in.Flags&DontFree == 0 {
				_ = unix.Close(in.FD)
			}
			return err
		}
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
		if in.Flags&DontFree == 0 {
			_ = unix.Close(in.FD)
		}
		s.push(Frame{
			Kind:   Mapped,
			Data:   data,
			Offset: in.Offset,
			Length: in.Length,
			Flags:  FreeOnErr,
		})

	case in.Kind == Heap && in.Flags&ReadOnly == 0:
		owned := make([]byte, in.remaining())
		copy(owned, in.Data[in.Offset:in.Length])
		s.push(Frame{
			Kind:   Heap,
			Data:   owned,
			Offset: 0,
			Length: len(owned),
		})

	default:
		s.push(in)
	}

	return nil
}

func (s *Storage) push(f Frame) {
	s.grow()
	s.frames = append(s.frames[:len(s.frames):cap(s.frames)], f)
	s.size += int64(f.remaining())
}

// Drain advances the head frame's offset by n, releasing and evicting it
// once exhausted. n must not exceed the head frame's remaining byte
// count; against empty storage n must be zero.
func (s *Storage) Drain(n int) error {
	if n == 0 && s.IsEmpty() {
		return nil
	}
	if s.IsEmpty() {
		return ErrDrainOnEmpty
	}

	head := &s.frames[0]
	if n > head.remaining() {
		return ErrDrainTooLarge
	}

	head.Offset += n
	s.size -= int64(n)

	if head.exhausted() {
		if err := release(*head); err != nil {
			return err
		}
		copy(s.frames, s.frames[1:])
		s.frames = s.frames[:len(s.frames)-1]
		s.maybeShrink()
	}

	return nil
}

// Finish compacts a partially drained, non-read-only head frame: its
// unconsumed bytes move to the front of the backing buffer, which is then
// reallocated to the new (smaller) length. A failed shrink of the backing
// buffer is non-fatal and leaves the frame's contents intact at their new
// offset-0 position.
func (s *Storage) Finish() error {
	if s.IsEmpty() {
		return nil
	}
	head := &s.frames[0]
	if head.Flags&ReadOnly != 0 || head.Offset == 0 {
		return nil
	}

	newLen := head.remaining()
	compacted := make([]byte, newLen)
	copy(compacted, head.Data[head.Offset:head.Length])
	head.Data = compacted
	head.Offset = 0
	head.Length = newLen
	return nil
}

// Close releases every queued frame, honoring each frame's DontFree flag.
func (s *Storage) Close() error {
	var first error
	for i := range s.frames {
		if err := release(s.frames[i]); err != nil && first == nil {
			first = err
		}
	}
	s.frames = nil
	s.size = 0
	return first
}

// release frees a frame's payload per its Kind, unless DontFree is set.
func release(f Frame) error {
	if f.Flags&DontFree != 0 {
		return nil
	}
	switch f.Kind {
	case Heap:
		return nil
	case Mapped:
		return unix.Munmap(f.Data)
	case File:
		return unix.Close(f.FD)
	default:
		return nil
	}
}
