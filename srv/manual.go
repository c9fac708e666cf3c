package srv

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/russross/blackfriday/v2"
)

//go:embed MANUAL.md
var manualMD []byte

func (s *Server) handleManualRaw(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(manualMD)
}

func (s *Server) handleManualHTML(w http.ResponseWriter, r *http.Request) {
	body := blackfriday.Run(manualMD)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><html lang="en"><head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Manual - File Processor Service</title>
<style>
body{font:16px/1.6 system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;margin:0}
.wrap{max-width:900px;margin:40px auto;padding:0 20px}
pre,code{font-family:ui-monospace,Menlo,Consolas,monospace}
pre{background:#f6f8fa;padding:12px;border-radius:8px;overflow:auto}
table{border-collapse:collapse;width:100%%} th,td{border:1px solid #ddd;padding:8px}
h1,h2{border-bottom:1px solid #eee;padding-bottom:.3em}
blockquote{border-left:4px solid #eee;margin:0;padding:.5em 1em;color:#555}
</style>
</head><body><div class="wrap">%s</div></body></html>`, body)
}
