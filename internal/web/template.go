package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/knock-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"intervals": func(ds []time.Duration) string {
		parts := make([]string, len(ds))
		for i, d := range ds {
			parts[i] = fmt.Sprintf("%d", d.Milliseconds())
		}
		return strings.Join(parts, ", ")
	},
	"serialName": func(s string) string {
		if s == "" {
			return "stdout"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Knock Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Knock Sensor{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Sensor</h2>
<table>
<tr><th>Touch</th><td id="touch-state" class="{{if eq (stateOrUnknown (printf "%s" .Touch)) "ON"}}on{{else if eq (stateOrUnknown (printf "%s" .Touch)) "OFF"}}off{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .Touch)}}</td></tr>
<tr><th>Recording</th><td>{{if .Recording}}yes ({{.Pending}} intervals){{else}}no{{end}}</td></tr>
<tr><th>Last pattern</th><td id="last-pattern">{{if .LastPattern}}{{intervals .LastPattern.Intervals}} ms{{else}}none{{end}}</td></tr>
{{if .LastPattern}}<tr><th>Pattern time</th><td>{{.LastPattern.At.UTC.Format "2006-01-02T15:04:05Z"}} ({{.LastPattern.Reason}})</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Serial</th><td>{{serialName .Config.Serial}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Touch ON</th><td>{{.Counts.TouchOn}}</td></tr>
<tr><th>Touch OFF</th><td>{{.Counts.TouchOff}}</td></tr>
<tr><th>Patterns</th><td>{{.Counts.Patterns}}</td></tr>
<tr><th>Overflows</th><td>{{.Counts.Overflows}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Pins</th><td>touch {{.Config.PinTouch}}, led {{.Config.PinLED}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var touchEl = document.getElementById("touch-state");
  var patternEl = document.getElementById("last-pattern");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/live");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      var line = ev.data.trim();
      if (line === "1") {
        touchEl.textContent = "ON";
        touchEl.className = "on";
      } else if (line === "0") {
        touchEl.textContent = "OFF";
        touchEl.className = "off";
      } else if (line.indexOf("DATA:") === 0) {
        patternEl.textContent = line.slice(5).split(",").join(", ") + " ms";
      }
    };
  }

  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
