package mail

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string

	// Destinatário dos alertas de lead quente (time comercial).
	AlertTo string
}

type HotLeadEmailData struct {
	LeadName   string
	LeadID     string
	TotalScore int
	Reasoning  string
	Email      string
	Phone      string
}
