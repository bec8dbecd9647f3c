package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Form is a multipart/form-data request body. Fields keep insertion order.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	open     func() (io.ReadCloser, error)
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// Set adds a field, replacing any earlier value for the same name.
func (f *Form) Set(name, value string) *Form {
	for i := range f.fields {
		if f.fields[i].name == name {
			f.fields[i].value = value
			return f
		}
	}
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// Get returns the value of a field.
func (f *Form) Get(name string) (string, bool) {
	for _, fld := range f.fields {
		if fld.name == name {
			return fld.value, true
		}
	}
	return "", false
}

// AddFile attaches file content read from r.
func (f *Form) AddFile(field, filename string, r io.Reader) *Form {
	f.files = append(f.files, formFile{
		field:    field,
		filename: filename,
		open:     func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	})
	return f
}

// AddFilePath attaches the file at path. The file is opened when the form
// is encoded; AddFilePath only checks that it exists.
func (f *Form) AddFilePath(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("attach %s: %s is a directory", field, path)
	}
	f.files = append(f.files, formFile{
		field:    field,
		filename: filepath.Base(path),
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
	})
	return nil
}

// encode renders the form and returns the body and its Content-Type.
func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if f != nil {
		for _, fld := range f.fields {
			if err := w.WriteField(fld.name, fld.value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", fld.name, err)
			}
		}
		for _, ff := range f.files {
			if err := writeFile(w, ff); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, ff formFile) error {
	rc, err := ff.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", ff.field, err)
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(ff.filename)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(ff.field), quoteEscaper.Replace(ff.filename)))
	h.Set("Content-Type", ctype)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", ff.field, err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copy %s: %w", ff.field, err)
	}
	return nil
}
