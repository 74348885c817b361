package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// Multipart is a form upload with optional plain fields and one file.
type Multipart struct {
	Fields    map[string]string
	FileField string
	FileName  string
	File      io.Reader
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	if m.File != nil {
		field := m.FileField
		if field == "" {
			field = "file"
		}
		part, err := w.CreateFormFile(field, m.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, m.File); err != nil {
			return nil, "", fmt.Errorf("copying %s: %w", m.FileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
