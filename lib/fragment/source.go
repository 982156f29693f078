package fragment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Source loads view template text by name. Names use forward slashes and
// carry no extension ("contact/form").
type Source interface {
	Load(ctx context.Context, name string) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, name string) (string, error)

func (f SourceFunc) Load(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// DefaultExts are the extensions tried, in order, by FSSource and S3Source.
var DefaultExts = []string{".html", ".tmpl"}

// FSSource loads views from an fs.FS.
type FSSource struct {
	FS   fs.FS
	Exts []string
}

// DirSource loads views from a directory on disk.
func DirSource(root string) FSSource {
	return FSSource{FS: os.DirFS(root)}
}

func (s FSSource) Load(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("view %q: %w", name, fs.ErrInvalid)
	}

	exts := s.Exts
	if len(exts) == 0 {
		exts = DefaultExts
	}
	for _, ext := range exts {
		data, err := fs.ReadFile(s.FS, name+ext)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("view %q: %w", name, err)
		}
	}
	return "", fmt.Errorf("view %q: %w", name, fs.ErrNotExist)
}

// MapSource serves views from memory. Useful in tests and for views built
// at startup.
type MapSource map[string]string

func (m MapSource) Load(ctx context.Context, name string) (string, error) {
	src, ok := m[name]
	if !ok {
		return "", fmt.Errorf("view %q: %w", name, fs.ErrNotExist)
	}
	return src, nil
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads views from an S3 bucket.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	src := &fragment.S3Source{Client: s3.NewFromConfig(cfg), Bucket: "views", Prefix: "app/"}
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
	Exts   []string
}

func (s *S3Source) Load(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("view %q: %w", name, fs.ErrInvalid)
	}

	exts := s.Exts
	if len(exts) == 0 {
		exts = DefaultExts
	}
	for _, ext := range exts {
		key := path.Join(s.Prefix, name+ext)
		out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				continue
			}
			return "", fmt.Errorf("view %q: s3 get %s: %w", name, key, err)
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return "", fmt.Errorf("view %q: read s3 object: %w", name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("view %q: %w", name, fs.ErrNotExist)
}
