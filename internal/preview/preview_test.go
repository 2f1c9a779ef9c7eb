package preview

import (
	"strings"
	"testing"

	"github.com/arin/webviber/internal/extract"
)

const page = "<html><head><title>t</title></head><body><div id=\"root\"></div></body></html>"

func site() []extract.File {
	return []extract.File{
		{Path: "public/index.html", Language: "html", Content: page},
		{Path: "style.css", Language: "css", Content: "body{margin:0}"},
		{Path: "app.js", Language: "javascript", Content: "console.log(1)"},
	}
}

func TestCompose_InjectsStyleAndScript(t *testing.T) {
	doc, ok := Compose(site(), Options{})
	if !ok {
		t.Fatal("expected a preview")
	}
	if !strings.Contains(doc, "<style>body{margin:0}</style></head>") {
		t.Errorf("style not injected before </head>: %s", doc)
	}
	if !strings.Contains(doc, "<script>console.log(1)</script></body>") {
		t.Errorf("script not injected before </body>: %s", doc)
	}
}

func TestCompose_IsIdempotentOnRawInputs(t *testing.T) {
	files := site()
	first, _ := Compose(files, Options{})
	second, _ := Compose(files, Options{})
	if first != second {
		t.Errorf("composition differs between runs:\n%s\n%s", first, second)
	}
	if strings.Count(first, "<style>") != 1 || strings.Count(first, "<script>") != 1 {
		t.Errorf("expected exactly one injection each, got %s", first)
	}
	if files[0].Content != page {
		t.Error("Compose must not modify the input files")
	}
}

func TestCompose_NoHTML(t *testing.T) {
	_, ok := Compose([]extract.File{{Path: "a.css", Language: "css", Content: "x"}}, Options{})
	if ok {
		t.Error("expected no preview without an HTML entry point")
	}
}

func TestCompose_HTMLOnly(t *testing.T) {
	doc, ok := Compose([]extract.File{{Path: "index.html", Language: "html", Content: page}}, Options{})
	if !ok {
		t.Fatal("expected a preview")
	}
	if doc != page {
		t.Errorf("expected the page untouched, got %s", doc)
	}
}

func TestCompose_ExactMatch(t *testing.T) {
	files := site()
	if _, ok := Compose(files, Options{Match: MatchExact}); ok {
		t.Error("public/index.html should not match index.html exactly")
	}

	files = append(files, extract.File{Path: "index.html", Language: "html", Content: "<p>root</p>"})
	doc, ok := Compose(files, Options{Match: MatchExact})
	if !ok || doc != "<p>root</p>" {
		t.Errorf("expected root index.html, got %q %v", doc, ok)
	}
}

func TestCompose_FirstOccurrenceOnly(t *testing.T) {
	files := []extract.File{
		{Path: "index.html", Language: "html", Content: "</head></head></body></body>"},
		{Path: "a.css", Language: "css", Content: "A"},
		{Path: "b.css", Language: "css", Content: "B"},
		{Path: "x.js", Language: "javascript", Content: "X"},
	}
	doc, _ := Compose(files, Options{})
	want := "<style>A</style></head></head><script>X</script></body></body>"
	if doc != want {
		t.Errorf("expected %q, got %q", want, doc)
	}
}

func TestCompose_MissingClosingTags(t *testing.T) {
	files := []extract.File{
		{Path: "index.html", Language: "html", Content: "<h1>hi</h1>"},
		{Path: "a.css", Language: "css", Content: "A"},
		{Path: "x.js", Language: "javascript", Content: "X"},
	}
	doc, _ := Compose(files, Options{})
	if doc != "<h1>hi</h1>" {
		t.Errorf("expected no injection without closing tags, got %q", doc)
	}
}

func TestCompose_CaseSensitiveTags(t *testing.T) {
	files := []extract.File{
		{Path: "index.html", Language: "html", Content: "<HEAD></HEAD>"},
		{Path: "a.css", Language: "css", Content: "A"},
	}
	doc, _ := Compose(files, Options{})
	if strings.Contains(doc, "<style>") {
		t.Errorf("uppercase tags must not match, got %q", doc)
	}
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{"", Desktop, false},
		{"desktop", Desktop, false},
		{"Tablet", Tablet, false},
		{" mobile ", Mobile, false},
		{"watch", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDevice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDevice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDevice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeviceFrame(t *testing.T) {
	if f := Mobile.Frame(); f.Width != 375 || f.Height != 667 {
		t.Errorf("unexpected mobile frame %+v", f)
	}
	if f := Tablet.Frame(); f.Width != 768 || f.Height != 1024 {
		t.Errorf("unexpected tablet frame %+v", f)
	}
	if f := Desktop.Frame(); f.Width != 0 {
		t.Errorf("desktop should fill the window, got %+v", f)
	}
}
