package web

import (
	"fmt"
	"html"
	"strings"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/source"
)

const indexHeader = `<!DOCTYPE html>
<html>
<head>
    <title>Camera Stream Manager</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: sans-serif; background: #14161a; color: #e8e8e8; margin: 0; padding: 20px; }
        h1 { font-size: 20px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 16px; }
        .panel { background: #1e2127; border-radius: 8px; padding: 12px; }
        .panel img { width: 100%; height: auto; display: block; background: #000; border-radius: 4px; }
        .badge { padding: 2px 8px; border-radius: 10px; font-size: 12px; }
        .online { background: #1d5c2e; }
        .offline { background: #6b2020; }
        .meta { font-size: 12px; color: #9aa0a6; margin-top: 6px; word-break: break-all; }
    </style>
</head>
<body>
    <h1>Camera Stream Manager</h1>
    <div class="grid">
`

const indexFooter = `    </div>
    <script>
        setInterval(function() {
            fetch('/check_streams').then(function(r) { return r.json(); }).then(function(streams) {
                streams.forEach(function(s) {
                    var badge = document.getElementById('badge-' + s.id);
                    if (!badge) { return; }
                    badge.textContent = s.status ? 'online' : 'offline';
                    badge.className = 'badge ' + (s.status ? 'online' : 'offline');
                });
            });
        }, 10000);
    </script>
</body>
</html>
`

// renderIndex builds the viewer page: one panel per raw source with its
// initial probe status, plus the mixed output panel.
func renderIndex(probes []source.ProbeResult) string {
	var b strings.Builder
	b.WriteString(indexHeader)

	for _, p := range probes {
		badge, label := "offline", "offline"
		if p.Reachable {
			badge, label = "online", "online"
		}
		fmt.Fprintf(&b, `        <div class="panel">
            <h2>Stream %d <span id="badge-%d" class="badge %s">%s</span></h2>
            <img src="/stream/%d" alt="Stream %d">
            <div class="meta">%s</div>
        </div>
`, p.SourceID, p.SourceID, badge, label, p.SourceID, p.SourceID, html.EscapeString(p.URL))
	}

	b.WriteString(`        <div class="panel">
            <h2>Mixed Output</h2>
            <img src="/stream/mixed" alt="Mixed stream">
            <div class="meta">crossfade composite</div>
        </div>
`)
	b.WriteString(indexFooter)
	return b.String()
}
