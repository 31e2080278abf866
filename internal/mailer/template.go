package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

var layout = template.Must(template.New("layout").Parse(`<div style="background:linear-gradient(135deg,#000000 0%,#40e0d0 100%);padding:40px 0;font-family:Segoe UI,Roboto,sans-serif;">
<div style="max-width:420px;margin:0 auto;background:#fff;border-radius:18px;padding:32px 28px 28px 28px;">
<h2 style="color:#40e0d0;font-weight:700;margin:0 0 8px 0;text-align:center;">{{.Brand}}</h2>
{{.Body}}
</div>
<p style="text-align:center;color:#ffffff;font-size:0.95rem;margin-top:32px;">&copy; {{.Year}} {{.Brand}}. All rights reserved.</p>
</div>`))

// Renderer builds branded messages. Bodies are written in Markdown and rendered with goldmark.
type Renderer struct {
	brand string
	md    goldmark.Markdown
	now   func() time.Time
}

func NewRenderer(brand string) *Renderer {
	if brand == "" {
		brand = "FasarliAI"
	}
	return &Renderer{
		brand: brand,
		md:    goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
		now:   time.Now,
	}
}

// CodeMessage renders a one-time-code email.
func (r *Renderer) CodeMessage(to, subject, code string, ttl time.Duration) (Message, error) {
	text := fmt.Sprintf("## Your verification code\n\n# `%s`\n\nThis code expires in **%s**.\nNever share this code with anyone.\n",
		code, humanDuration(ttl))
	msg, err := r.render(to, subject, text)
	if err != nil {
		return Message{}, err
	}
	msg.Code = code
	return msg, nil
}

// NoticeMessage renders a plain account notice.
func (r *Renderer) NoticeMessage(to, subject, body string) (Message, error) {
	return r.render(to, subject, body)
}

func (r *Renderer) render(to, subject, markdown string) (Message, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &body); err != nil {
		return Message{}, fmt.Errorf("render mail markdown failed: %w", err)
	}
	var out bytes.Buffer
	err := layout.Execute(&out, struct {
		Brand string
		Body  template.HTML
		Year  int
	}{Brand: r.brand, Body: template.HTML(body.String()), Year: r.now().Year()})
	if err != nil {
		return Message{}, fmt.Errorf("render mail layout failed: %w", err)
	}
	return Message{To: to, Subject: subject, HTML: out.String(), Text: markdown}, nil
}

func humanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	switch {
	case minutes == 1:
		return "1 minute"
	case minutes > 1:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
}
