package client

import (
	"fmt"
	"io"
	"mime/multipart"
)

// multipartBody streams the form written by write through a pipe. The returned
// reader is closed by the HTTP transport, which also stops the writer.
func multipartBody(write func(*multipart.Writer) error) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := write(mw)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeFields(mw *multipart.Writer, fields [][2]string) error {
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	return nil
}

func writeFile(mw *multipart.Writer, field, filename string, body io.Reader) error {
	if filename == "" {
		filename = field
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("failed to write %s: %w", field, err)
	}
	return nil
}
