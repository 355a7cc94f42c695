package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strconv"
)

// documentTemplate 供浏览器打印 Document。页面尺寸来自 @page，
// 两个浏览器后端因此共用页边距与纸张大小。
const documentTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  @page { size: {{mm .Page.WidthMM}} {{mm .Page.HeightMM}}; margin: {{mm .Margins.Top}} {{mm .Margins.Right}} {{mm .Margins.Bottom}} {{mm .Margins.Left}}; }
  * { box-sizing: border-box; }
  html, body { margin: 0; padding: 0; background: white; }
  body { font-family: Helvetica, Arial, sans-serif; font-size: 10pt; color: #212121; line-height: 1.35; }
  header { display: flex; justify-content: space-between; gap: 8mm; border-bottom: 0.3mm solid #1f3a5f; padding-bottom: 3mm; margin-bottom: 4mm; }
  header h1 { font-size: 20pt; margin: 0 0 1mm 0; }
  header .headline { font-size: 12pt; color: #666; }
  header .contact { font-size: 9.5pt; color: #666; }
  header .summary { margin-top: 2mm; }
  header img { width: 25mm; height: 31mm; object-fit: cover; }
  main { display: flex; gap: 8mm; }
  .heading { font-weight: bold; font-size: 11pt; color: #1f3a5f; border-bottom: 0.3mm solid #1f3a5f; margin: 2mm 0 2mm 0; break-after: avoid; }
  .title { font-weight: bold; font-size: 10.5pt; }
  .muted { font-style: italic; font-size: 9pt; color: #666; }
  .spacer { height: 2.5mm; }
  ul.bullets { margin: 0; padding-left: 4mm; }
  .chips { display: flex; flex-wrap: wrap; gap: 2mm; }
  .chips span { border: 0.2mm solid #666; padding: 0.5mm 2mm; font-size: 9pt; }
</style>
</head>
<body>
<header>
  <div>
    <h1>{{.Header.Name}}</h1>
    {{with .Header.Headline}}<div class="headline">{{.}}</div>{{end}}
    {{range .Header.Contact}}<div class="contact">{{.}}</div>{{end}}
    {{with .Header.Summary}}<div class="summary">{{.}}</div>{{end}}
  </div>
  {{with .Header.Photo}}<img src="{{photoURI .}}" alt="">{{end}}
</header>
<main>
{{range .Columns}}
  <section style="flex: {{.Weight}} 1 0;">
  {{range .Blocks}}
    {{if eq .Kind "bullets"}}<ul class="bullets">{{range .Items}}<li>{{.}}</li>{{end}}</ul>
    {{else if eq .Kind "chips"}}<div class="chips">{{range .Items}}<span>{{.}}</span>{{end}}</div>
    {{else if eq .Kind "spacer"}}<div class="spacer"></div>
    {{else}}<div class="{{.Kind}}">{{.Text}}</div>
    {{end}}
  {{end}}
  </section>
{{end}}
</main>
</body>
</html>
`

var documentTmpl = template.Must(template.New("document").Funcs(template.FuncMap{
	"mm": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
	},
	"photoURI": func(p *Photo) template.URL {
		return template.URL("data:" + p.MIME() + ";base64," + base64.StdEncoding.EncodeToString(p.Data))
	},
}).Parse(documentTemplate))

// RenderHTML 生成 doc 的打印 HTML，所有文本均已转义。
func RenderHTML(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("execute document template: %w", err)
	}
	return buf.String(), nil
}
