package storage

import (
    "bytes"
    "io"
    "testing"

    "github.com/spf13/afero"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newStore(t *testing.T, max int64) (*ImageStore, afero.Fs) {
    t.Helper()
    fs := afero.NewMemMapFs()
    s, err := NewImageStore(fs, "uploads", max)
    require.NoError(t, err)
    return s, fs
}

func TestSaveOpenDelete(t *testing.T) {
    s, fs := newStore(t, 1024)

    name, err := s.Save("My Car.PNG", bytes.NewReader(pngHeader))
    require.NoError(t, err)
    assert.Regexp(t, `^car-[0-9a-f-]{36}\.png$`, name)

    ok, err := afero.Exists(fs, "uploads/"+name)
    require.NoError(t, err)
    assert.True(t, ok)

    f, err := s.Open(name)
    require.NoError(t, err)
    got, err := io.ReadAll(f)
    require.NoError(t, err)
    require.NoError(t, f.Close())
    assert.Equal(t, pngHeader, got)
    assert.Equal(t, "image/png", ContentType(name))

    require.NoError(t, s.Delete(name))
    require.NoError(t, s.Delete(name), "deleting twice is fine")
    _, err = s.Open(name)
    assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSaveRejects(t *testing.T) {
    s, _ := newStore(t, 16)

    _, err := s.Save("car.gif", bytes.NewReader(pngHeader))
    assert.ErrorIs(t, err, ErrUnsupportedType)

    _, err = s.Save("car.jpg", bytes.NewReader(pngHeader))
    assert.ErrorIs(t, err, ErrUnsupportedType, "content must match the extension")

    _, err = s.Save("car.png", bytes.NewReader(append(pngHeader, make([]byte, 16)...)))
    assert.ErrorIs(t, err, ErrTooLarge)
}

func TestOpenRejectsForeignNames(t *testing.T) {
    s, _ := newStore(t, 16)
    for _, name := range []string{"../etc/passwd", "car-x.png", "notes.txt"} {
        _, err := s.Open(name)
        assert.ErrorIs(t, err, ErrInvalidName, name)
    }
}
