// Package images turns raw image bytes into Markdown image references,
// either inline as a data URI or as a file saved next to the output.
package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zh1zunbao/makritup/internal/errs"
	"github.com/zh1zunbao/makritup/internal/utils"
)

// DefaultMIME is used when sniffing cannot identify an image.
const DefaultMIME = "image/jpeg"

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Namer produces a descriptive base name for an image. Implementations may
// be slow or fail; the resolver always has a fallback.
type Namer interface {
	GenerateName(ctx context.Context, data []byte, mime string) (string, error)
}

// Resolver renders image references. A zero Resolver embeds images as
// base64 data URIs with timestamp names.
type Resolver struct {
	// Dir is where images are saved. Empty selects inline mode.
	Dir string
	// OutputPath is the Markdown file being produced, used to rewrite saved
	// references relative to it.
	OutputPath string
	// Namer is consulted before the timestamp fallback when set.
	Namer Namer
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Reference is one resolved image.
type Reference struct {
	Name string
	MIME string
	Ext  string
	// Base64 holds the payload in inline mode.
	Base64 string
	// Path is the file written in saved mode; Link is how Markdown refers to it.
	Path string
	Link string
}

// Inline reports whether the reference carries its payload.
func (r Reference) Inline() bool { return r.Path == "" }

// Markdown renders the reference as an image line.
func (r Reference) Markdown() string {
	if r.Inline() {
		return fmt.Sprintf("![%s](data:%s;base64,%s)", r.Name, r.MIME, r.Base64)
	}
	return fmt.Sprintf("![%s](%s)", r.Name, r.Link)
}

// Sniff returns the image MIME type and file extension of data. Other image
// types keep the detected extension; anything unrecognised is JPEG.
func Sniff(data []byte) (mime, ext string) {
	m := mimetype.Detect(data)
	detected, _, _ := strings.Cut(m.String(), ";")
	if ext, ok := extensions[detected]; ok {
		return detected, ext
	}
	if ext := strings.TrimPrefix(m.Extension(), "."); strings.HasPrefix(detected, "image/") && ext != "" {
		return detected, ext
	}
	return DefaultMIME, "jpg"
}

// Resolve names data and either encodes it inline or saves it under Dir.
// Only a filesystem failure in saved mode is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, data []byte) (Reference, error) {
	if len(data) == 0 {
		return Reference{}, errs.ErrEmptyInput
	}

	mime, ext := Sniff(data)
	ref := Reference{
		Name: r.name(ctx, data, mime),
		MIME: mime,
		Ext:  ext,
	}

	if r.Dir == "" {
		ref.Base64 = base64.StdEncoding.EncodeToString(data)
		return ref, nil
	}

	if err := utils.EnsureDir(r.Dir); err != nil {
		return Reference{}, &errs.IOError{Path: r.Dir, Err: err}
	}

	fileName, path, err := r.save(ref.Name, ext, data)
	if err != nil {
		return Reference{}, err
	}
	ref.Name = strings.TrimSuffix(fileName, "."+ext)
	ref.Path = path
	ref.Link = utils.RelativeRef(r.OutputPath, r.Dir, fileName)
	return ref, nil
}

// Markdown resolves data and renders it.
func (r *Resolver) Markdown(ctx context.Context, data []byte) (string, error) {
	ref, err := r.Resolve(ctx, data)
	if err != nil {
		return "", err
	}
	return ref.Markdown(), nil
}

// save writes data as <name>.<ext>, adding a numeric suffix instead of
// overwriting an existing file.
func (r *Resolver) save(name, ext string, data []byte) (string, string, error) {
	for i := 0; ; i++ {
		fileName := name + "." + ext
		if i > 0 {
			fileName = fmt.Sprintf("%s-%d.%s", name, i, ext)
		}
		path := filepath.Join(r.Dir, fileName)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", "", &errs.IOError{Path: path, Err: err}
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", "", &errs.IOError{Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			return "", "", &errs.IOError{Path: path, Err: err}
		}
		return fileName, path, nil
	}
}

func (r *Resolver) name(ctx context.Context, data []byte, mime string) string {
	if r.Namer != nil {
		name, err := r.Namer.GenerateName(ctx, data, mime)
		if err == nil {
			if name = SanitizeName(name); name != "" {
				return name
			}
			err = errors.New("empty name")
		}
		r.logger().Warn("image naming failed, using timestamp", "error", &errs.NamingError{Err: err})
	}
	return TimestampName(r.now())
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// TimestampName is the fallback image name, pic-<unix seconds>.
func TimestampName(t time.Time) string {
	return fmt.Sprintf("pic-%d", t.Unix())
}

var nameReplacer = strings.NewReplacer(
	" ", "-", "/", "-", `\`, "-", ":", "-", "*", "-",
	"?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
	"\n", "-", "\r", "-", "\t", "-",
)

// SanitizeName makes a generated name safe to use as a file name.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	for _, ext := range []string{"png", "jpg", "jpeg", "gif", "webp"} {
		if strings.HasSuffix(strings.ToLower(name), "."+ext) {
			name = name[:len(name)-len(ext)-1]
			break
		}
	}
	return strings.Trim(nameReplacer.Replace(name), "-.")
}
