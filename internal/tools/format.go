package tools

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"beltche-mcp/pkg/logging"
	textutil "beltche-mcp/pkg/strings"
)

// maxListedStudents bounds the students spelled out in the text summary.
const maxListedStudents = 10

var funcs = func() template.FuncMap {
	m := sprig.TxtFuncMap()
	m["oneline"] = textutil.OneLineDefault
	return m
}()

var authorizeText = template.Must(template.New("authorize").Funcs(funcs).Parse(
	`**Authorization Required**

1. Click this link to authorize:
   {{ .AuthURL }}

2. Log in to your Beltche account

3. After authorization, use this linkToken for subsequent requests:
   ` + "`{{ .LinkToken }}`" + `

_You can now call get_students with this linkToken._`))

var notAuthorizedText = template.Must(template.New("not_authorized").Funcs(funcs).Parse(
	`**Authorization Required**

No valid authorization found for this linkToken.

Please:
1. Call the ` + "`authorize`" + ` tool to get a new authorization URL
2. Complete the authorization in your browser
3. Use the new linkToken to call this tool`))

var studentsText = template.Must(template.New("students").Funcs(funcs).Parse(
	`**Found {{ len .Students }} students**
{{ range $i, $s := .Students }}{{ if lt $i $.Limit }}
{{ add1 $i }}. **{{ $s.FirstName }} {{ $s.LastName }}** - {{ $s.Email }} (Belt: {{ $s.BeltID }}){{ end }}{{ end }}
{{ if gt (len .Students) .Limit }}
_...and {{ sub (len .Students) .Limit }} more_{{ end }}`))

var fetchFailedText = template.Must(template.New("fetch_failed").Funcs(funcs).Parse(
	`**Failed to fetch students**

Error: {{ oneline . }}`))

var gymCreatedText = template.Must(template.New("gym").Funcs(funcs).Parse(
	`**Gym "{{ .Name }}" created successfully!**

**Details:**
- **ID:** {{ .ID }}
- **Name:** {{ .Name }}
- **Address:** {{ .Street }}, {{ .Zipcode }} {{ .City }}
- **Email:** {{ .Email }}
- **Phone:** {{ .Phone }}
- **Payment Day:** {{ .PaymentDay }}
- **Currency:** {{ .CurrencySymbol }} ({{ .Currency }})
{{- with .Website }}
- **Website:** {{ . }}{{ end }}
{{- with .Description }}
- **Description:** {{ . | trunc 500 }}{{ end }}`))

var createFailedText = template.Must(template.New("create_failed").Funcs(funcs).Parse(
	`**Failed to create gym**

Error: {{ oneline . }}

Please check your input data and try again.`))

var exceptionText = template.Must(template.New("exception").Funcs(funcs).Parse(
	`**Something went wrong**

Error: {{ oneline . }}

Please try again in a moment. If the problem persists, call ` + "`authorize`" + ` again.`))

func render(tmpl *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logging.Error("Tools", err, "Failed to render %s text", tmpl.Name())
		return tmpl.Name()
	}
	return buf.String()
}
