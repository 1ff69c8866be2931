package http

import (
	"html/template"
	"net/http"

	"github.com/autopeer-io/oscpeer/pkg/osc"
	"github.com/autopeer-io/oscpeer/pkg/osc/render"
)

type pageData struct {
	Host       string
	Retrieving template.HTML
	Endpoints  []string
	Commands   []string
	Options    []string
	GetOptions string
	XSRFHeader string
	XSRFValue  string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>OSC console</title>
<style>
body { font-family: sans-serif; margin: 1em 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #bbb; padding: 2px 6px; text-align: left; vertical-align: top; }
td.object { padding: 0; }
.result { margin: .5em 0 1.5em; }
</style>
</head>
<body>
<h1>OSC console</h1>
<p>Camera: <code>{{.Host}}</code></p>

{{range .Endpoints}}
<h2>{{.}} <button data-endpoint="{{.}}">refresh</button></h2>
<div class="result" id="result-{{.}}"></div>
{{end}}

<h2>Command</h2>
<form id="command">
<input name="name" list="commands" value="camera.takePicture" size="30">
<datalist id="commands">{{range .Commands}}<option value="{{.}}">{{end}}</datalist>
<input name="parameters" placeholder='{"optionNames": ["iso"]}' size="60">
<button type="submit">execute</button>
</form>
<div class="result" id="result-command"></div>

<h2>Option</h2>
<form id="option">
<input name="option" list="options" placeholder="iso" size="30">
<datalist id="options">{{range .Options}}<option value="{{.}}">{{end}}</datalist>
<button type="submit">get</button>
</form>
<div class="result" id="result-option"></div>

<div id="retrieving" hidden>{{.Retrieving}}</div>
<script>
const retrieving = document.getElementById("retrieving").innerHTML;

function show(el, req) {
  el.innerHTML = retrieving;
  fetch(req.url, req.init).then(function(resp) {
    return resp.text();
  }).then(function(text) {
    el.innerHTML = text;
  }, function(err) {
    el.innerText = String(err);
  });
}

document.querySelectorAll("button[data-endpoint]").forEach(function(btn) {
  const name = btn.dataset.endpoint;
  const el = document.getElementById("result-" + name);
  btn.addEventListener("click", function() { show(el, {url: "/view/" + name}); });
  show(el, {url: "/view/" + name});
});

function execute(el, name, body) {
  show(el, {
    url: "/view/commands/" + encodeURIComponent(name),
    init: {method: "POST", headers: {"{{.XSRFHeader}}": "{{.XSRFValue}}"}, body: body},
  });
}

document.getElementById("command").addEventListener("submit", function(ev) {
  ev.preventDefault();
  const form = ev.target;
  execute(document.getElementById("result-command"),
    form.elements.name.value.trim(), form.elements.parameters.value.trim());
});

document.getElementById("option").addEventListener("submit", function(ev) {
  ev.preventDefault();
  const option = ev.target.elements.option.value.trim();
  execute(document.getElementById("result-option"), "{{.GetOptions}}",
    JSON.stringify({optionNames: [option]}));
});
</script>
</body>
</html>
`))

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	host := ""
	if s.deps.Host != nil {
		host = s.deps.Host()
	}
	data := pageData{
		Host:       host,
		Retrieving: template.HTML(render.Retrieving),
		Endpoints:  []string{"info", "state", "checkForUpdates"},
		Commands: []string{
			osc.CommandTakePicture,
			osc.CommandGetOptions,
			osc.CommandSetOptions,
			osc.CommandListFiles,
			osc.CommandDelete,
			osc.CommandReset,
		},
		Options:    osc.OptionNames,
		GetOptions: osc.CommandGetOptions,
		XSRFHeader: osc.HeaderXSRFProtected,
		XSRFValue:  osc.XSRFProtectedValue,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error(err, "Failed to render console page")
	}
}
