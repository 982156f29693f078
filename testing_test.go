package hyper

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseEvents(t *testing.T) {
	body := "event: datastar-patch-elements\nid: 1\ndata: selector #a\ndata: elements <p>one</p>\ndata: elements <p>two</p>\n\n" +
		"event: datastar-patch-signals\ndata: signals {\"a\":1}\n\n" +
		"event: datastar-patch-elements\ndata: elements <i>tail</i>\n"

	events := ParseEvents(body)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].ID != "1" || events[0].Field("selector") != "#a" {
		t.Errorf("first event = %+v", events[0])
	}
	if got := events[0].Elements(); got != "<p>one</p>\n<p>two</p>" {
		t.Errorf("Elements() = %q", got)
	}
	if diff := cmp.Diff(map[string]any{"a": float64(1)}, events[1].Signals()); diff != "" {
		t.Errorf("Signals() mismatch (-want +got):\n%s", diff)
	}
	if events[2].Elements() != "<i>tail</i>" {
		t.Errorf("unterminated event = %+v", events[2])
	}
}

func TestNewTestRequest(t *testing.T) {
	get := NewTestRequest(http.MethodGet, "/search?page=2", map[string]any{"q": "ada"})
	if !IsDatastar(get) {
		t.Error("missing Datastar header")
	}
	if get.URL.Query().Get("page") != "2" || get.URL.Query().Get(DatastarParam) != `{"q":"ada"}` {
		t.Errorf("query = %q", get.URL.RawQuery)
	}

	post := NewTestRequest(http.MethodPost, "/contacts", map[string]any{"name": "Ada"})
	body, _ := io.ReadAll(post.Body)
	if string(body) != `{"name":"Ada"}` || post.Header.Get("Content-Type") != "application/json" {
		t.Errorf("body = %q, content type = %q", body, post.Header.Get("Content-Type"))
	}
}

func TestTestRequest(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := ReadSignals(r)
		if err != nil {
			t.Fatal(err)
		}
		_ = NewResponse().
			HTML(`<p id="greeting">Hello, `+s.String("name")+`</p>`).
			Signals(map[string]any{"saved": true}).
			Flash(FlashSuccess, "Saved").
			Redirect("/contacts/1").
			Send(w, r)
	})

	res := TestRequest(h, http.MethodPost, "/contacts", map[string]any{"name": "Ada"})
	if !res.IsOK() {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if !res.ElementsContain("Hello, Ada") {
		t.Errorf("PatchedElements() = %q", res.PatchedElements())
	}
	if !res.Signals().Bool("saved") {
		t.Error("saved signal missing")
	}
	if diff := cmp.Diff([]Flash{{Level: FlashSuccess, Message: "Saved"}}, res.Flashes()); diff != "" {
		t.Errorf("Flashes() mismatch (-want +got):\n%s", diff)
	}
	if res.RedirectURL() != "/contacts/1" {
		t.Errorf("RedirectURL() = %q", res.RedirectURL())
	}
	if len(res.EventsNamed(EventPatchElements)) != 3 {
		t.Errorf("patch-elements events = %d, want 3", len(res.EventsNamed(EventPatchElements)))
	}
}

func TestRecordPlainResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html")
	rec.WriteHeader(http.StatusNotFound)
	_, _ = rec.WriteString("<p>nope</p>")

	res := Record(rec)
	if res.IsOK() || res.Events != nil || res.Body != "<p>nope</p>" {
		t.Errorf("Record() = %+v", res)
	}
	if len(res.Errors()) != 0 || res.RedirectURL() != "" {
		t.Error("plain response reported stream data")
	}
}
