package imagestore

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// UploadedFile is the handle a host hands over for one uploaded image.
type UploadedFile interface {
	// Filename is the client's original file name.
	Filename() string
	// Extension is the client-declared extension without the dot.
	Extension() string
	Size() int64
	Open() (io.ReadCloser, error)
}

func extensionOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

type fileHeader struct {
	fh *multipart.FileHeader
}

// FromFileHeader adapts a multipart form file.
func FromFileHeader(fh *multipart.FileHeader) UploadedFile {
	return fileHeader{fh: fh}
}

func (f fileHeader) Filename() string  { return f.fh.Filename }
func (f fileHeader) Extension() string { return extensionOf(f.fh.Filename) }
func (f fileHeader) Size() int64       { return f.fh.Size }

func (f fileHeader) Open() (io.ReadCloser, error) {
	return f.fh.Open()
}

type localFile struct {
	path string
}

// LocalFile adapts a file already on disk, such as a host's temp file.
func LocalFile(path string) UploadedFile {
	return localFile{path: path}
}

func (f localFile) Filename() string  { return filepath.Base(f.path) }
func (f localFile) Extension() string { return extensionOf(f.path) }

func (f localFile) Size() int64 {
	info, err := os.Stat(f.path)
	if err != nil {
		return -1
	}
	return info.Size()
}

func (f localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type memoryFile struct {
	name string
	data []byte
}

// BytesFile wraps an in-memory payload under the given client file name.
func BytesFile(name string, data []byte) UploadedFile {
	return memoryFile{name: name, data: data}
}

func (f memoryFile) Filename() string  { return f.name }
func (f memoryFile) Extension() string { return extensionOf(f.name) }
func (f memoryFile) Size() int64       { return int64(len(f.data)) }

func (f memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
