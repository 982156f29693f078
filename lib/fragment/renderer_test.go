package fragment

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const contactView = `<html><body>
@fragment('form')
<form>
  <input name="email" value="{{ .Email }}">
  @fragment('errors')<p class="error">{{ .Error }}</p>@endfragment
</form>
@endfragment
</body></html>`

// recordingObserver counts observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	rendered int
	failed   int
	resets   int
}

func (o *recordingObserver) FragmentRendered(view, fragment string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rendered++
	if err != nil {
		o.failed++
	}
}

func (o *recordingObserver) CacheReset(view string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

// sequenceSource returns successive sources on each load.
type sequenceSource struct {
	mu      sync.Mutex
	sources []string
	loads   int
}

func (s *sequenceSource) Load(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.loads
	if i >= len(s.sources) {
		i = len(s.sources) - 1
	}
	s.loads++
	return s.sources[i], nil
}

func TestRenderFragment(t *testing.T) {
	r := NewRenderer(MapSource{"contact": contactView})

	data := map[string]string{"Email": "a@b.com", "Error": "bad <input>"}
	got, err := r.RenderString(context.Background(), "contact", "form", data)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}

	if !strings.Contains(got, `value="a@b.com"`) {
		t.Errorf("missing bound value: %s", got)
	}
	if !strings.Contains(got, `<p class="error">bad &lt;input&gt;</p>`) {
		t.Errorf("nested fragment not rendered or not escaped: %s", got)
	}
	if strings.Contains(got, "@fragment") || strings.Contains(got, "@endfragment") {
		t.Errorf("markers leaked into output: %s", got)
	}
	if strings.Contains(got, "<body>") {
		t.Errorf("output contains text outside the fragment: %s", got)
	}
}

func TestRenderInnerFragment(t *testing.T) {
	r := NewRenderer(MapSource{"contact": contactView})

	got, err := r.RenderString(context.Background(), "contact", "errors", map[string]string{"Error": "required"})
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != `<p class="error">required</p>` {
		t.Errorf("RenderString() = %q", got)
	}
}

func TestRenderView(t *testing.T) {
	r := NewRenderer(MapSource{"contact": contactView})

	var buf bytes.Buffer
	if err := r.RenderView(context.Background(), &buf, "contact", map[string]string{"Email": "x"}); err != nil {
		t.Fatalf("RenderView() error = %v", err)
	}
	if !strings.Contains(buf.String(), "<body>") || strings.Contains(buf.String(), "@fragment") {
		t.Errorf("RenderView() = %s", buf.String())
	}
}

func TestRenderCachesCompiledTemplates(t *testing.T) {
	src := &sequenceSource{sources: []string{contactView}}
	r := NewRenderer(src)

	for i := 0; i < 3; i++ {
		if _, err := r.RenderString(context.Background(), "contact", "errors", map[string]string{}); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	if src.loads != 1 {
		t.Errorf("source loaded %d times, want 1", src.loads)
	}
	if r.Cached() != 1 {
		t.Errorf("Cached() = %d, want 1", r.Cached())
	}

	r.Reset()
	if r.Cached() != 0 {
		t.Errorf("Cached() after Reset = %d, want 0", r.Cached())
	}
}

func TestRenderRetriesOnceAfterCacheReset(t *testing.T) {
	broken := `@fragment('a'){{ if .On }}on@endfragment`
	fixed := `@fragment('a'){{ if .On }}on{{ end }}@endfragment`
	src := &sequenceSource{sources: []string{broken, fixed}}
	obs := &recordingObserver{}
	r := NewRenderer(src, WithObserver(obs))

	got, err := r.RenderString(context.Background(), "v", "a", map[string]bool{"On": true})
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "on" {
		t.Errorf("RenderString() = %q, want %q", got, "on")
	}
	if src.loads != 2 {
		t.Errorf("source loaded %d times, want 2", src.loads)
	}
	if obs.resets != 1 {
		t.Errorf("cache resets = %d, want 1", obs.resets)
	}
	if obs.rendered != 1 || obs.failed != 0 {
		t.Errorf("observer rendered=%d failed=%d, want 1/0", obs.rendered, obs.failed)
	}
}

func TestRenderRetryFailureChainsBothErrors(t *testing.T) {
	broken := `@fragment('a'){{ if .On }}on@endfragment`
	src := &sequenceSource{sources: []string{broken}}
	obs := &recordingObserver{}
	r := NewRenderer(src, WithObserver(obs))

	var buf bytes.Buffer
	err := r.Render(context.Background(), &buf, "v", "a", nil)
	if err == nil {
		t.Fatal("Render() expected error")
	}

	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("error %T is not *RenderError", err)
	}
	if re.Err == nil || re.RetryErr == nil {
		t.Errorf("RenderError missing chained errors: %+v", re)
	}
	if len(re.Unwrap()) != 2 {
		t.Errorf("Unwrap() returned %d errors, want 2", len(re.Unwrap()))
	}
	if src.loads != 2 {
		t.Errorf("source loaded %d times, want exactly 2", src.loads)
	}
	if buf.Len() != 0 {
		t.Errorf("partial output written on failure: %q", buf.String())
	}
	if obs.failed != 1 {
		t.Errorf("observer failed = %d, want 1", obs.failed)
	}
}

func TestRenderDoesNotRetryFragmentErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		frag    string
		wantErr error
	}{
		{"missing", "@fragment('a')x@endfragment", "b", ErrNotFound},
		{"duplicate", "@fragment('a')x@endfragment@fragment('a')y@endfragment", "a", ErrDuplicate},
		{"unterminated", "@fragment('a')x", "a", ErrStructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sequenceSource{sources: []string{tt.src}}
			obs := &recordingObserver{}
			r := NewRenderer(src, WithObserver(obs))

			_, err := r.RenderString(context.Background(), "v", tt.frag, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var fe *Error
			if errors.As(err, &fe) && fe.Template != "v" {
				t.Errorf("Template = %q, want v", fe.Template)
			}
			if src.loads != 1 {
				t.Errorf("source loaded %d times, want 1", src.loads)
			}
			if obs.resets != 0 {
				t.Errorf("cache resets = %d, want 0", obs.resets)
			}
		})
	}
}

func TestRenderMissingViewNotRetried(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRenderer(MapSource{}, WithObserver(obs))

	_, err := r.RenderString(context.Background(), "nope", "a", nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}
	if obs.resets != 0 {
		t.Errorf("cache resets = %d, want 0", obs.resets)
	}
}

func TestRenderContextFuncs(t *testing.T) {
	type key struct{}
	funcs := func(ctx context.Context) template.FuncMap {
		return template.FuncMap{
			"who": func() string {
				if v, ok := ctx.Value(key{}).(string); ok {
					return v
				}
				return "nobody"
			},
		}
	}
	r := NewRenderer(MapSource{"v": "@fragment('a')hi {{ who }}@endfragment"}, WithContextFuncs(funcs))

	ctx := context.WithValue(context.Background(), key{}, "ada")
	got, err := r.RenderString(ctx, "v", "a", nil)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "hi ada" {
		t.Errorf("RenderString() = %q, want %q", got, "hi ada")
	}

	got, err = r.RenderString(context.Background(), "v", "a", nil)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "hi nobody" {
		t.Errorf("RenderString() = %q, want %q", got, "hi nobody")
	}
}

func TestRenderCustomParserAndDelims(t *testing.T) {
	r := NewRenderer(
		MapSource{"v": "@region('a')[[ .N ]]@endregion"},
		WithParser(NewParser("region", "endregion")),
		WithDelims("[[", "]]"),
		WithFuncs(template.FuncMap{"upper": strings.ToUpper}),
	)

	got, err := r.RenderString(context.Background(), "v", "a", map[string]int{"N": 7})
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "7" {
		t.Errorf("RenderString() = %q, want 7", got)
	}
}

func TestFSSource(t *testing.T) {
	src := FSSource{FS: fstest.MapFS{
		"contact/form.html": {Data: []byte("html")},
		"mail.tmpl":         {Data: []byte("tmpl")},
	}}

	tests := []struct {
		name    string
		view    string
		want    string
		wantErr error
	}{
		{"html ext", "contact/form", "html", nil},
		{"leading slash", "/contact/form", "html", nil},
		{"tmpl fallback", "mail", "tmpl", nil},
		{"missing", "nope", "", fs.ErrNotExist},
		{"traversal", "../etc/passwd", "", fs.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Load(context.Background(), tt.view)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Load() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeS3 serves objects from a map.
type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Key)
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"views/app/contact.tmpl": "@fragment('a')from s3@endfragment",
	}}
	src := &S3Source{Client: client, Bucket: "views", Prefix: "app"}

	r := NewRenderer(src)
	got, err := r.RenderString(context.Background(), "contact", "a", nil)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if got != "from s3" {
		t.Errorf("RenderString() = %q", got)
	}
	if len(client.keys) != 2 || client.keys[0] != "app/contact.html" || client.keys[1] != "app/contact.tmpl" {
		t.Errorf("requested keys = %v", client.keys)
	}

	if _, err := src.Load(context.Background(), "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want fs.ErrNotExist", err)
	}
}
