package server

import (
	"html/template"
	"strconv"

	"github.com/arin/webviber/internal/preview"
)

type deviceOption struct {
	Name   preview.Device
	Active bool
}

type shellData struct {
	Device  preview.Device
	Width   string
	Height  string
	Framed  bool
	Devices []deviceOption
}

func newShellData(d preview.Device) shellData {
	data := shellData{Device: d, Width: "100%", Height: "100%"}
	if f := d.Frame(); f.Width > 0 {
		data.Width = strconv.Itoa(f.Width) + "px"
		data.Height = strconv.Itoa(f.Height) + "px"
		data.Framed = true
	}
	for _, opt := range preview.Devices {
		data.Devices = append(data.Devices, deviceOption{Name: opt, Active: opt == d})
	}
	return data
}

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Web Viber preview</title>
<style>
  html, body { margin: 0; height: 100%; background: #111827; color: #e5e7eb; font-family: system-ui, sans-serif; }
  header { display: flex; align-items: center; gap: .75rem; padding: .5rem 1rem; background: #1f2937; }
  header a { color: #9ca3af; text-decoration: none; padding: .25rem .5rem; border-radius: .25rem; }
  header a.active { color: #fff; background: #374151; }
  #status { margin-left: auto; font-size: .85rem; color: #9ca3af; }
  main { display: flex; justify-content: center; align-items: center; height: calc(100% - 2.75rem); }
  iframe { border: 0; background: #fff; max-width: 100%; max-height: 100%; }
  iframe.framed { border: 4px solid #4b5563; border-radius: .5rem; box-shadow: 0 25px 50px -12px rgba(0,0,0,.5); }
  #empty { color: #6b7280; }
</style>
</head>
<body data-device="{{.Device}}">
<header>
  <strong>Web Viber</strong>
  {{range .Devices}}<a href="/?device={{.Name}}"{{if .Active}} class="active"{{end}}>{{.Name}}</a>
  {{end}}<a href="/api/export.zip" download>download .zip</a>
  <span id="status">connecting...</span>
</header>
<main>
  <iframe id="frame" src="/preview" title="preview" sandbox="allow-scripts allow-forms allow-modals"{{if .Framed}} class="framed"{{end}} style="width: {{.Width}}; height: {{.Height}};"></iframe>
</main>
<script>
(function () {
  var frame = document.getElementById("frame");
  var status = document.getElementById("status");
  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type !== "update") return;
      var n = (msg.files || []).length;
      var text = n + (n === 1 ? " file" : " files");
      if (msg.generating) text = msg.partial ? "writing " + msg.partial.path + "..." : "generating...";
      status.textContent = text;
      if (msg.reload) frame.src = "/preview?t=" + Date.now();
    };
    ws.onclose = function () {
      status.textContent = "disconnected, retrying...";
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`))
