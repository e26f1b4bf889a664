package dataframe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageFinishCompactsHeadFrame(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("XS"), Offset: 0, Length: 2}))
	require.NoError(t, s.Drain(1))
	require.NoError(t, s.Finish())

	require.Equal(t, 0, s.frames[0].Offset)
	require.Equal(t, 1, s.frames[0].Length)
	require.Equal(t, byte('S'), s.frames[0].Data[0])
}

func TestStorageFileBackedAdd(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "dataframe")
	require.NoError(t, err)
	_, err = f.WriteString("abc")
	require.NoError(t, err)
	fd := int(f.Fd())

	s := New()
	require.NoError(t, s.Add(Frame{Kind: File, FD: fd, Offset: 1, Length: 3}))
	require.Equal(t, Mapped, s.frames[0].Kind)
	require.EqualValues(t, 2, s.Size())

	require.NoError(t, s.Drain(2))
	require.True(t, s.IsEmpty())

	// the fd was consumed by Add (mmap'd then closed); writing to it now
	// must fail.
	_, err = f.WriteString("x")
	require.Error(t, err)
}

func TestStorageByteCountInvariant(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("hello"), Length: 5}))
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("world"), Length: 5}))
	require.EqualValues(t, 10, s.Size())

	require.NoError(t, s.Drain(3))
	require.EqualValues(t, 7, s.Size())
}

func TestStorageDrainOrderingHeadOnly(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("AA"), Length: 2, Flags: ReadOnly}))
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("BB"), Length: 2, Flags: ReadOnly}))

	require.NoError(t, s.Drain(2))
	require.Equal(t, byte('B'), s.frames[0].Data[0])
}

func TestStorageDrainZeroOnEmptyIsNoop(t *testing.T) {
	s := New()
	require.True(t, s.IsEmpty())
	require.NoError(t, s.Drain(0))
}

func TestStorageDrainNonZeroOnEmptyErrors(t *testing.T) {
	s := New()
	require.ErrorIs(t, s.Drain(1), ErrDrainOnEmpty)
}

func TestStorageAddZeroLengthFrameIsNoop(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte{}, Offset: 0, Length: 0}))
	require.True(t, s.IsEmpty())
	require.EqualValues(t, 0, s.Size())
}

func TestStorageReadOnlyFrameRetainedByCaller(t *testing.T) {
	s := New()
	buf := []byte("payload")
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: buf, Length: len(buf), Flags: ReadOnly}))
	require.Same(t, &buf[0], &s.frames[0].Data[0])
}

func TestStorageRoundTripAddDrainFull(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(Frame{Kind: Heap, Data: []byte("abc"), Length: 3}))
	require.NoError(t, s.Drain(3))
	require.True(t, s.IsEmpty())
	require.EqualValues(t, 0, s.Size())
}
