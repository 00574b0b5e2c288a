package reminder

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"pms/internal/model"
	"pms/internal/validation"
)

// Notifier delivers one deadline reminder to the task's assignee.
type Notifier interface {
	SendDeadlineReminder(ctx context.Context, task *model.Task) error
}

// LogNotifier writes reminders to the process log. It is the default when no SMTP host is set.
type LogNotifier struct{}

func (LogNotifier) SendDeadlineReminder(_ context.Context, task *model.Task) error {
	log.Printf("📨 Reminder for %s: task %q is due %s",
		task.AssignedTo.Email, task.Title, task.DueDate.Format(validation.DateLayout))
	return nil
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails reminders through an SMTP relay.
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail SendMailFunc
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// WithSendMail replaces the transport, used by tests.
func (n *SMTPNotifier) WithSendMail(fn SendMailFunc) *SMTPNotifier {
	n.sendMail = fn
	return n
}

func (n *SMTPNotifier) SendDeadlineReminder(_ context.Context, task *model.Task) error {
	to := task.AssignedTo.Email
	if err := n.sendMail(n.addr, n.auth, n.from, []string{to}, deadlineMessage(n.from, task)); err != nil {
		return fmt.Errorf("send reminder to %s: %w", to, err)
	}
	return nil
}

func deadlineMessage(from string, task *model.Task) []byte {
	due := task.DueDate.Format(validation.DateLayout)

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", task.AssignedTo.Email)
	fmt.Fprintf(&b, "Subject: Upcoming Deadline: %s\r\n", oneLine(task.Title))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", task.AssignedTo.Username)
	fmt.Fprintf(&b, "This is a reminder that the task %q is due tomorrow (%s).\r\n\r\n", task.Title, due)
	b.WriteString("Task Details:\r\n")
	fmt.Fprintf(&b, "- Title: %s\r\n", task.Title)
	fmt.Fprintf(&b, "- Description: %s\r\n", task.Description)
	fmt.Fprintf(&b, "- Deadline: %s\r\n\r\n", due)
	b.WriteString("Please ensure you complete the task on time.\r\n\r\n")
	b.WriteString("Best regards,\r\nProject Management System\r\n")
	return b.Bytes()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
