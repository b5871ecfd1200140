package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/sakif/article-api/internal/apperror"
	"github.com/sakif/article-api/internal/model"
)

// DefaultMaxUploadBytes is the per-file limit when none is configured (5 MiB).
const DefaultMaxUploadBytes int64 = 5 << 20

// formOverhead is room for the non-file fields and multipart boundaries on
// top of the file itself.
const formOverhead int64 = 1 << 20

// multipartMemory is how much of a multipart body is kept in memory before
// ParseMultipartForm spills files to disk.
const multipartMemory int64 = 1 << 20

// form is a parsed request body. It accepts multipart, urlencoded and JSON
// bodies so the same handler code reads fields from any of them.
//
// A field is "present" only if its key appears in the body. That is what
// makes partial updates work: an absent title is left alone, an empty one
// is rejected by validation.
type form struct {
	values    url.Values
	files     map[string][]*multipart.FileHeader
	maxUpload int64

	multipart *multipart.Form
	opened    []multipart.File
}

func parseForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (*form, error) {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+formOverhead)

	f := &form{values: url.Values{}, maxUpload: maxUpload}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		f.values = r.MultipartForm.Value
		f.files = r.MultipartForm.File
		f.multipart = r.MultipartForm

	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, bodyError(err)
		}
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				f.values.Set(k, v)
			case nil:
				f.values.Set(k, "")
			default:
				f.values.Set(k, fmt.Sprint(v))
			}
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		f.values = r.PostForm
	}

	return f, nil
}

// bodyError keeps *http.MaxBytesError intact so writeError can answer 413.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLarge
	}
	return apperror.ValidationFailed("body", "The request body could not be parsed.")
}

func (f *form) value(key string) string {
	return f.values.Get(key)
}

// optional returns nil when key was not sent at all.
func (f *form) optional(key string) *string {
	vs, ok := f.values[key]
	if !ok {
		return nil
	}
	v := ""
	if len(vs) > 0 {
		v = vs[0]
	}
	return &v
}

// file opens the upload named key. It returns nil, nil when no file was sent.
func (f *form) file(key string) (*model.Upload, error) {
	headers := f.files[key]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]
	if fh.Size > f.maxUpload {
		return nil, apperror.ValidationFailed(key,
			fmt.Sprintf("The %s field must not be greater than %d kilobytes.", key, f.maxUpload/1024))
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("handler: opening upload %q: %w", key, err)
	}
	f.opened = append(f.opened, file)
	return &model.Upload{Filename: fh.Filename, Body: file}, nil
}

// close releases opened uploads and any temp files the multipart parser
// wrote to disk.
func (f *form) close() {
	for _, file := range f.opened {
		file.Close()
	}
	if f.multipart != nil {
		f.multipart.RemoveAll()
	}
}
