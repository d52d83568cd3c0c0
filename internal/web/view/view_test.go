package view_test

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/willemschots/newsletter/internal/web/view"
)

func Test_Parse(t *testing.T) {
	okTests := map[string]struct {
		files fstest.MapFS
		name  string
		data  any
		want  string
	}{
		"ok, layout only": {
			files: files(map[string]string{
				"base.html": `<html>Hello {{ . }}</html>`,
			}),
			name: "",
			data: "reader",
			want: `<html>Hello reader</html>`,
		},
		"ok, layout by name": {
			files: files(map[string]string{
				"base.html": `<html>Hello {{ . }}</html>`,
			}),
			name: "base",
			data: "reader",
			want: `<html>Hello reader</html>`,
		},
		"ok, page fills the layout": {
			files: files(map[string]string{
				"base.html":  `<main>{{block "content" .}}{{end}}</main>`,
				"login.html": `{{define "content"}}<form>{{ . }}</form>{{end}}`,
			}),
			name: "login",
			data: "fields",
			want: `<main><form>fields</form></main>`,
		},
		"ok, page uses partial": {
			files: files(map[string]string{
				"base.html":              `<main>{{block "content" .}}{{end}}</main>`,
				"home.html":              `{{define "content"}}{{template "flashes" .}}{{end}}`,
				"partials/flashes.html":  `{{define "flashes"}}<p>{{ . }}</p>{{end}}`,
				"partials/unused.html":   `{{define "unused"}}{{end}}`,
				"not-a-partial/foo.html": `{{define "content"}}wrong{{end}}`,
			}),
			name: "home",
			data: "Subscribed",
			want: `<main><p>Subscribed</p></main>`,
		},
		"ok, year func": {
			files: files(map[string]string{
				"base.html": `{{if gt year 2000}}recent{{end}}`,
			}),
			name: "",
			want: `recent`,
		},
		"ok, data is escaped": {
			files: files(map[string]string{
				"base.html": `<p>{{ . }}</p>`,
			}),
			name: "",
			data: "<script>alert('xss')</script>",
			want: `<p>&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;</p>`,
		},
	}

	for name, tc := range okTests {
		t.Run(name, func(t *testing.T) {
			v, err := view.Parse(tc.files, tc.name)
			if err != nil {
				t.Fatalf("unexpected error parsing view: %v", err)
			}

			var buf bytes.Buffer
			err = v.Render(&buf, tc.data)
			if err != nil {
				t.Fatalf("unexpected error rendering view: %v", err)
			}

			if got := buf.String(); got != tc.want {
				t.Errorf("got\n%s\nwant\n%s", got, tc.want)
			}
		})
	}

	failTests := map[string]struct {
		files fstest.MapFS
		name  string
	}{
		"fail, no files": {
			files: fstest.MapFS{},
			name:  "",
		},
		"fail, no layout": {
			files: files(map[string]string{
				"home.html": `<h1>Hello</h1>`,
			}),
			name: "home",
		},
		"fail, missing page": {
			files: files(map[string]string{
				"base.html": `<main>{{block "content" .}}{{end}}</main>`,
			}),
			name: "home",
		},
		"fail, path traversal": {
			files: files(map[string]string{
				"base.html": `<main></main>`,
			}),
			name: "../base",
		},
		"fail, broken template": {
			files: files(map[string]string{
				"base.html": `<main>{{ .Unclosed </main>`,
			}),
			name: "",
		},
	}

	for name, tc := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := view.Parse(tc.files, tc.name)
			if err == nil {
				t.Fatalf("expected error, got <nil>")
			}
		})
	}
}

func Test_Renderer(t *testing.T) {
	fsys := files(map[string]string{
		"base.html":  `<main>{{block "content" .}}{{end}}</main>`,
		"home.html":  `{{define "content"}}home {{ . }}{{end}}`,
		"login.html": `{{define "content"}}login {{ . }}{{end}}`,
	})

	t.Run("ok, renders parsed views", func(t *testing.T) {
		r, err := view.NewRenderer(fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var buf bytes.Buffer
		err = r.Render(&buf, "login", "form")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if buf.String() != "<main>login form</main>" {
			t.Errorf("got %q", buf.String())
		}
	})

	t.Run("fail, unknown view", func(t *testing.T) {
		r, err := view.NewRenderer(fsys)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		err = r.Render(&bytes.Buffer{}, "dashboard", nil)
		if err == nil || !strings.Contains(err.Error(), "dashboard") {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("fail, broken page fails at construction", func(t *testing.T) {
		broken := files(map[string]string{
			"base.html": `<main>{{block "content" .}}{{end}}</main>`,
			"home.html": `{{define "content"}}{{ .Oops {{end}}`,
		})

		_, err := view.NewRenderer(broken)
		if err == nil {
			t.Fatalf("expected error, got <nil>")
		}
	})

	t.Run("ok, reloading renderer picks up changes", func(t *testing.T) {
		live := files(map[string]string{
			"base.html": `v1`,
		})
		r := view.NewReloadingRenderer(live)

		var buf bytes.Buffer
		if err := r.Render(&buf, "", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		live["base.html"].Data = []byte(`v2`)

		buf.Reset()
		if err := r.Render(&buf, "", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if buf.String() != "v2" {
			t.Errorf("got %q, want %q", buf.String(), "v2")
		}
	})
}

func files(m map[string]string) fstest.MapFS {
	fsys := make(fstest.MapFS, len(m))
	for name, content := range m {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}
