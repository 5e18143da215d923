package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends transactional emails. Nil = no-op.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, fullName string) error
	SendVerificationDecision(ctx context.Context, toEmail, fullName string, approved bool) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@roomlink.ng"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API. Without an API key it does nothing.
func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "RoomLink"},
		To:          []BrevoTo{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@roomlink.ng", Name: "RoomLink Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome is sent once after signup.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, fullName string) error {
	return c.send(ctx, toEmail, fullName, "Welcome to RoomLink", EmailLayout(welcomeContent(firstName(fullName))))
}

// SendVerificationDecision tells a student the outcome of their document review.
func (c *BrevoClient) SendVerificationDecision(ctx context.Context, toEmail, fullName string, approved bool) error {
	subject := "Your student verification was approved"
	if !approved {
		subject = "Your student verification needs attention"
	}
	return c.send(ctx, toEmail, fullName, subject, EmailLayout(decisionContent(firstName(fullName), approved)))
}

func welcomeContent(name string) string {
	return fmt.Sprintf(`
    <h1>Welcome to RoomLink, %s!</h1>
    <p>Your account is ready. You can browse houses and roommate posts around campus right away.</p>
    <p>Upload your student ID or admission letter to get the <strong>Verified Student</strong> badge. Verified students' listings are shown ahead of unverified ones.</p>
    <center>
      <a href="https://roomlink.ng/verification" class="rl-button">Verify my account</a>
    </center>
    <p>The RoomLink Team</p>
`, EscapeHTML(name))
}

func decisionContent(name string, approved bool) string {
	if approved {
		return fmt.Sprintf(`
    <h1>You're verified, %s</h1>
    <p>An administrator reviewed your document and approved your student verification. Your profile and listings now show the <strong>Verified Student</strong> badge.</p>
    <p>The RoomLink Team</p>
`, EscapeHTML(name))
	}
	return fmt.Sprintf(`
    <h1>Hi %s, we couldn't verify your document</h1>
    <p>An administrator reviewed your document and could not approve it. Please upload a clear PDF or photo of your student ID or admission letter and we will review it again.</p>
    <center>
      <a href="https://roomlink.ng/verification" class="rl-button">Upload a new document</a>
    </center>
    <p>The RoomLink Team</p>
`, EscapeHTML(name))
}
