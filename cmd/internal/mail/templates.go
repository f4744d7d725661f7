package mail

import (
	"bytes"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	KindVerifyEmail = "verify_email"
	KindLogin       = "login"
)

var (
	verifyHTML = template.Must(template.New("verify").Parse(
		`<p>Hi{{if .Name}} {{.Name}}{{end}},</p>
<p>Please click the link below to verify your email:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in {{.Expiry}}.</p>
`))

	loginHTML = template.Must(template.New("login").Parse(
		`<p>Click the link below to log in:</p>
<p><a href="{{.Link}}">Login to Your Account</a></p>
<p>This link will expire in {{.Expiry}}.</p>
`))
)

// Links renders the URLs embedded in outgoing mail.
type Links struct {
	BaseURL string
}

func (l Links) build(path, tok string) string {
	base := strings.TrimRight(l.BaseURL, "/")
	return base + path + "?token=" + url.QueryEscape(tok)
}

// VerifyEmail returns the link redeemed by GET /verify-email.
func (l Links) VerifyEmail(tok string) string { return l.build("/verify-email", tok) }

// Login returns the link redeemed by GET /verify-login.
func (l Links) Login(tok string) string { return l.build("/verify-login", tok) }

type templateData struct {
	Name   string
	Link   string
	Expiry string
}

// VerificationMessage renders the sign-up confirmation mail.
func VerificationMessage(to, name, link string, ttl time.Duration) (Message, error) {
	data := templateData{Name: name, Link: link, Expiry: humanDuration(ttl)}
	var buf bytes.Buffer
	if err := verifyHTML.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindVerifyEmail,
		To:      to,
		Subject: "Verify Your Email",
		Text:    "Please open the link below to verify your email:\n\n" + link + "\n\nThis link will expire in " + data.Expiry + ".\n",
		HTML:    buf.String(),
	}, nil
}

// LoginMessage renders the magic-link login mail.
func LoginMessage(to, link string, ttl time.Duration) (Message, error) {
	data := templateData{Link: link, Expiry: humanDuration(ttl)}
	var buf bytes.Buffer
	if err := loginHTML.Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindLogin,
		To:      to,
		Subject: "Your Login Link",
		Text:    "Open the link below to log in:\n\n" + link + "\n\nThis link will expire in " + data.Expiry + ".\n",
		HTML:    buf.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
