package mail

import (
	"html/template"
	"strings"
	"time"
)

type templateData struct {
	AppName   string
	Title     string
	ImgURL    string
	ActionURL string
	Code      string
	Year      int
}

// Shared card layout: dark page background, white card, header bar with the
// app icon, centered code box and action button.
const layout = `<!doctype html>
<html>
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  </head>
  <body style="margin:0;padding:0;background:#0f172a;">
    <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="width:100%;background:#0f172a;">
      <tr>
        <td align="center" style="padding:28px 14px;">
          <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="width:100%;max-width:600px;background:#ffffff;border:1px solid #eaeef5;border-radius:14px;overflow:hidden;">
            <tr>
              <td style="padding:20px 24px 0 24px;">
                <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="width:100%;background:#334155;border-radius:12px;">
                  <tr>
                    <td align="left" style="padding:16px 18px;font:700 18px/1.2 'Segoe UI',Roboto,Arial,sans-serif;color:#ffffff;">{{.Title}}</td>
                    <td align="right" style="padding:16px 18px;white-space:nowrap;">
                      <img src="{{.ImgURL}}" width="44" height="44" alt="{{.AppName}}" style="display:block;border:0;outline:none;border-radius:8px" />
                    </td>
                  </tr>
                </table>
              </td>
            </tr>
            <tr>
              <td style="padding:24px 28px 0 28px;text-align:center;">
                <div style="font:700 20px/1.2 'Segoe UI',Roboto,Arial,sans-serif;color:#111827;">{{block "heading" .}}{{end}}</div>
                <div style="margin-top:8px;font:400 14px/1.6 'Segoe UI',Roboto,Arial,sans-serif;color:#6b7280;">{{block "intro" .}}{{end}}</div>
              </td>
            </tr>
            <tr>
              <td align="center" style="padding:12px 28px 0 28px;">
                <div style="display:inline-block;background:#eef2ff;color:#1f3fff;border:1px solid #dbe3ff;border-radius:10px;padding:14px 20px;font:700 22px/1.2 'Segoe UI',Roboto,Arial,sans-serif;letter-spacing:0.08em;">{{.Code}}</div>
              </td>
            </tr>
            <tr>
              <td align="center" style="padding:18px 28px 6px 28px;">
                <a href="{{.ActionURL}}" target="_blank" style="display:inline-block;background:#2563eb;color:#ffffff;text-decoration:none;font:600 14px/1 'Segoe UI',Roboto,Arial,sans-serif;padding:14px 22px;border-radius:10px;border:1px solid #1e4fdc;">{{block "action" .}}{{end}}</a>
              </td>
            </tr>
            <tr>
              <td style="padding:8px 28px 24px 28px;text-align:center;font:400 12px/1.6 'Segoe UI',Roboto,Arial,sans-serif;color:#6b7280;">
                If the button doesn&rsquo;t work, copy this link:<br>
                <span style="word-break:break-all;color:#374151;">{{.ActionURL}}</span>
              </td>
            </tr>
            <tr>
              <td style="padding:14px 28px 24px 28px;border-top:1px solid #eef1f6;text-align:center;font:400 12px/1.6 'Segoe UI',Roboto,Arial,sans-serif;color:#9ca3af;">{{block "footer" .}}{{end}}</td>
            </tr>
          </table>
          <div style="padding:12px 8px 0 8px;font:400 11px/1.6 'Segoe UI',Roboto,Arial,sans-serif;color:#9ca3af;">&copy; {{.Year}} {{.AppName}}</div>
        </td>
      </tr>
    </table>
  </body>
</html>`

const verificationBlocks = `
{{define "heading"}}Verify your email{{end}}
{{define "intro"}}Welcome to <strong>{{.AppName}}</strong>! Use the code below to verify your email address.{{end}}
{{define "action"}}Verify my email{{end}}
{{define "footer"}}If you didn&rsquo;t sign up, you can safely ignore this email.{{end}}`

const resetBlocks = `
{{define "heading"}}Set a new password{{end}}
{{define "intro"}}Use the code below to set a new password for your <strong>{{.AppName}}</strong> account.{{end}}
{{define "action"}}Set new password{{end}}
{{define "footer"}}If you didn&rsquo;t request a password reset, you can safely ignore this email.{{end}}`

var (
	verificationTmpl = template.Must(template.Must(template.New("verification").Parse(layout)).Parse(verificationBlocks))
	resetTmpl        = template.Must(template.Must(template.New("reset").Parse(layout)).Parse(resetBlocks))
)

func renderVerification(data templateData) (string, error) {
	return render(verificationTmpl, data)
}

func renderReset(data templateData) (string, error) {
	return render(resetTmpl, data)
}

func render(tmpl *template.Template, data templateData) (string, error) {
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
