package export

import (
	"bytes"
	"html/template"
	"strings"
)

var boardTemplate = template.Must(template.New("board").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(boardTemplateHTML))

// renderBoardHTML produces the printable page handed to Chrome.
func renderBoardHTML(board Board) (string, error) {
	var buf bytes.Buffer
	if err := boardTemplate.Execute(&buf, board); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const boardTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Name}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 1.5rem; color: #222; }
    h1 { margin: 0 0 0.25rem 0; }
    .meta { color: #666; font-size: 0.85em; margin-bottom: 1.5rem; }
    table { border-collapse: collapse; width: 100%; table-layout: fixed; }
    th, td { border: 1px solid #ccc; padding: 6px; vertical-align: top; font-size: 0.8em; }
    th.journey { background: #2d3d55; color: #fff; }
    th.step { background: #eef1f6; }
    th.release { background: #f6f0e4; text-align: left; width: 7rem; }
    .story { background: #fdf6c9; border: 1px solid #e4d98a; border-radius: 3px;
             padding: 4px; margin-bottom: 4px; }
    .story .status { color: #777; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>{{.Name}}</h1>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <div class="meta">Exported {{.ExportedAt.Format "Jan 2, 2006 15:04"}}</div>
  <table>
    <tr>
      <th class="release"></th>
      {{range .Journeys}}<th class="journey" colspan="{{len .Steps}}">{{.Name}}</th>{{end}}
    </tr>
    <tr>
      <th class="release">Release</th>
      {{range .Journeys}}{{range .Steps}}<th class="step">{{.Name}}</th>{{end}}{{end}}
    </tr>
    {{range .Releases}}
    <tr>
      <th class="release">{{.Name}}</th>
      {{range .Cells}}
      <td>
        {{range .Stories}}
        <div class="story">
          {{.Title}}
          <div class="status">{{.Status | lower}}{{if .Size}} &middot; {{.Size}} pts{{end}}</div>
        </div>
        {{end}}
      </td>
      {{end}}
    </tr>
    {{end}}
  </table>
</body>
</html>`
