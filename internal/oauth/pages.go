package oauth

import (
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"

	"beltche-mcp/pkg/logging"
)

const pageLayout = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{ .Title }} - Beltche</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 600px;
            margin: 50px auto;
            padding: 20px;
            text-align: center;
            background: #f5f5f5;
        }
        .card {
            background: white;
            border-radius: 12px;
            padding: 40px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        h1.ok { color: #27ae60; }
        h1.fail { color: #e74c3c; }
        code {
            background: #f4f4f4;
            padding: 8px 16px;
            border-radius: 6px;
            font-size: 14px;
            display: inline-block;
            margin: 10px 0;
            word-break: break-all;
        }
        .info { color: #666; margin-top: 20px; }
        .footer { margin-top: 2rem; font-size: 0.8rem; color: #999; }
    </style>
</head>
<body>
    <div class="card">
    {{- if .LinkToken }}
        <h1 class="ok">Authorization Complete</h1>
        <p>You can now close this page and return to your assistant.</p>
        <p><strong>Your linkToken:</strong></p>
        <code>{{ .LinkToken }}</code>
        <p class="info">Use this linkToken when calling <strong>get_students</strong> or <strong>create_gym</strong>.</p>
    {{- else }}
        <h1 class="fail">Authorization Failed</h1>
        {{- range .Lines }}
        <p>{{ . | trunc 300 }}</p>
        {{- end }}
    {{- end }}
        <div class="footer">Beltche MCP &middot; {{ now | date "2006" }}</div>
    </div>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Funcs(sprig.HtmlFuncMap()).Parse(pageLayout))

type pageData struct {
	Title     string
	LinkToken string
	Lines     []string
}

// setSecurityHeaders sets recommended security headers for HTML responses.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logging.Error("OAuth", err, "Failed to render callback page")
	}
}

func renderSuccessPage(w http.ResponseWriter, linkToken string) {
	renderPage(w, http.StatusOK, pageData{Title: "Authorization Complete", LinkToken: linkToken})
}

func renderErrorPage(w http.ResponseWriter, status int, lines ...string) {
	renderPage(w, status, pageData{Title: "Authorization Failed", Lines: lines})
}
