package mail

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-inference/internal/entity"
)

func NewEmailSender(host string, port int, user, password, alertTo string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		AlertTo:  alertTo,
	}
}

// SendHotLeadAlert avisa o time comercial que um lead cruzou o score de
// qualificação. Chamado pelo worker, sempre best-effort.
func (s *EmailSender) SendHotLeadAlert(lead *entity.Lead, reasoning string) error {
	data := HotLeadEmailData{
		LeadName:   lead.FullName,
		LeadID:     lead.ID,
		TotalScore: lead.TotalScore(),
		Reasoning:  reasoning,
	}
	if lead.Email != nil {
		data.Email = *lead.Email
	}
	if lead.Phone != nil {
		data.Phone = *lead.Phone
	}

	tmplPath := filepath.Join("templates", "hot_lead.html")
	t, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("erro ao ler template de email: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", "nao-responda@liguemedicina.com")
	m.SetHeader("To", s.AlertTo)
	m.SetHeader("Subject", fmt.Sprintf("🔥 Lead quente: %s (score %d)", data.LeadName, data.TotalScore))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	return nil
}
