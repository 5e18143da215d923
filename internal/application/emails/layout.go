package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	themePrimary   = "#1D4ED8"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F3F4F6"
	themeWhite     = "#FFFFFF"
)

// EmailLayout wraps content in the shared RoomLink HTML frame.
func EmailLayout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>RoomLink</title>
  <style>
    body { margin: 0; padding: 0; width: 100%% !important; background-color: %s; }
    body, td, p, a { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %s; }
    .content-body p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content-body h1 { font-size: 22px; margin: 0 0 18px 0; }
    .rl-button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 28px; border-radius: 6px; font-weight: 600; text-decoration: none !important; }
    .footer-text { color: %s; font-size: 13px; }
  </style>
</head>
<body style="background-color: %s;">
  <table role="presentation" width="100%%" border="0" cellspacing="0" cellpadding="0">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" border="0" cellspacing="0" cellpadding="0" style="background-color: %s; border-radius: 8px;">
          <tr><td style="padding: 32px 48px 8px 48px; font-size: 22px; font-weight: 700; color: %s;">RoomLink</td></tr>
          <tr><td class="content-body" style="padding: 16px 48px 24px 48px;">%s</td></tr>
          <tr><td align="center" style="padding: 0 48px 32px 48px;"><p class="footer-text">© %d RoomLink. Questions? <a href="mailto:support@roomlink.ng">support@roomlink.ng</a></p></td></tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themeTextMuted,
		themeBgBody, themeWhite, themePrimary, contentHTML, year)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

func firstName(fullName string) string {
	if f := strings.Fields(fullName); len(f) > 0 {
		return f[0]
	}
	return "there"
}
