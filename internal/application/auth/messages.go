package auth

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

func verifyEmailMessage(app string, u domain.User, link string, ttl time.Duration) Message {
	valid := validityText(ttl)
	return Message{
		Purpose: domain.PurposeVerifyEmail,
		To:      u.Email,
		Subject: app + " - Verify your email",
		Text:    fmt.Sprintf("Hi %s,\n\nVerify your email by opening this link (valid for %s):\n\n%s\n", displayName(u), valid, link),
		HTML: renderBasicHTML(
			"Verify your email",
			"Hi "+displayName(u)+", click the button below to verify your email address. The link is valid for "+valid+".",
			"Verify email",
			link,
		),
		Link: link,
	}
}

func passwordResetMessage(app string, u domain.User, link string, ttl time.Duration) Message {
	valid := validityText(ttl)
	return Message{
		Purpose: domain.PurposeResetPassword,
		To:      u.Email,
		Subject: app + " - Reset your password",
		Text:    fmt.Sprintf("Hi %s,\n\nReset your password by opening this link (valid for %s):\n\n%s\n\nIf you did not ask for this, ignore this email.\n", displayName(u), valid, link),
		HTML: renderBasicHTML(
			"Reset your password",
			"Hi "+displayName(u)+", click the button below to reset your password. The link is valid for "+valid+".",
			"Reset password",
			link,
		),
		Link: link,
	}
}

// validityText renders a token lifetime for email copy: "24 hours", "1 hour", "10 minutes".
func validityText(d time.Duration) string {
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
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func displayName(u domain.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func renderBasicHTML(title, intro, buttonText, link string) string {
	escLink := html.EscapeString(link)
	escTitle := html.EscapeString(title)
	escIntro := html.EscapeString(intro)
	escBtn := html.EscapeString(buttonText)

	// very simple inline HTML (works in Gmail)
	return `<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <h2>` + escTitle + `</h2>
    <p>` + escIntro + `</p>

    <p>
      <a href="` + escLink + `" style="display:inline-block; padding:10px 14px; text-decoration:none; border-radius:6px; background:#111; color:#fff;">
        ` + escBtn + `
      </a>
    </p>

    <p style="color:#555; font-size:12px;">
      If the button doesn't work, open this link:<br/>
      <a href="` + escLink + `">` + escLink + `</a>
    </p>
  </body>
</html>`
}
