package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
body { background: #0a0a0a; color: #d0d0d0; font-family: monospace; padding: 2em; }
td { padding: 0.2em 1em 0.2em 0; }
.label { color: #888899; }
#phase { color: #00ff88; font-weight: bold; }
</style>
<script>
window.addEventListener("load", function () {
	const ws = new WebSocket("ws://" + location.host + "/ws");
	const bar = document.getElementById("bar");
	ws.onmessage = function (event) {
		const s = JSON.parse(event.data);
		document.getElementById("iteration").textContent = s.iteration;
		document.getElementById("norm").textContent = s.norm.toPrecision(4);
		document.getElementById("phase").textContent = s.phase;
		bar.value = s.iteration;
		if (s.done) {
			bar.value = bar.max;
		}
	};
	ws.onerror = function (event) {
		console.log("websocket error: ", event);
	};
});
</script>
</head>
<body>
<h1>{{ .Title }}</h1>
<table>
<tr><td class="label">phase</td><td id="phase">{{ .Phase }}</td></tr>
<tr><td class="label">sweep</td><td><span id="iteration">{{ .Iteration }}</span> / {{ .Budget }}</td></tr>
<tr><td class="label">max change</td><td id="norm">{{ printf "%.4g" .Norm }}</td></tr>
<tr><td class="label">tolerance</td><td>{{ .Tolerance }}</td></tr>
</table>
<progress id="bar" max="{{ .Budget }}" value="{{ .Iteration }}"></progress>
</body>
</html>
`))

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.Latest()); err != nil {
		s.logger.Warn("render index", zap.Error(err))
	}
}
