package s3

import (
	"bytes"
	"context"
	"io"
	"io/fs"

	"github.com/objectfs/mountfs/pkg/vpath"
)

// objectWriter buffers an object and uploads it on Close.
type objectWriter struct {
	ctx     context.Context
	backend *Backend
	path    vpath.Path
	buf     bytes.Buffer
	closed  bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return fs.ErrClosed
	}
	w.closed = true

	data := w.buf.Bytes()
	var err error
	if w.backend.uploader != nil && int64(len(data)) >= w.backend.config.UploadThreshold {
		err = w.backend.upload(w.ctx, w.path.Authority, objectKey(w.path), data)
	} else {
		err = w.backend.put(w.ctx, w.path.Authority, objectKey(w.path), data, nil)
	}
	if err != nil {
		return w.backend.translateError(err, "create", w.path)
	}
	return nil
}

// countingReader tracks downloaded bytes.
type countingReader struct {
	io.ReadCloser
	backend *Backend
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.backend.mu.Lock()
		r.backend.metrics.BytesDownloaded += int64(n)
		r.backend.mu.Unlock()
	}
	return n, err
}
